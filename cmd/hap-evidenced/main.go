// Command hap-evidenced serves an evidence store over gRPC so signers
// and auditors on other hosts can park and fetch canonical bytes by CID.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"google.golang.org/grpc"

	"hap.dev/hap/evidence"
)

func main() {
	fs := flag.NewFlagSet("hap-evidenced", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7788", "listen address")
	dir := fs.String("dir", "", "evidence directory (localfs backend)")
	config := fs.String("config", "", "evidence config file (overrides --dir)")

	_ = fs.Parse(os.Args[1:])

	var store evidence.Store
	var closeFn func() error
	var err error
	switch {
	case *config != "":
		var cfg evidence.Config
		cfg, err = evidence.LoadConfig(*config)
		if err == nil {
			store, closeFn, err = cfg.Open()
		}
	case *dir != "":
		store, err = evidence.NewFSStore(*dir)
	default:
		err = fmt.Errorf("either --dir or --config is required")
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if closeFn != nil {
		defer closeFn()
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer()
	evidence.RegisterEvidenceServer(s, &evidence.Server{Store: store})

	fmt.Fprintf(os.Stderr, "hap-evidenced listening on %s\n", lis.Addr().String())
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
