// Command scene-cached serves a shared content cache over gRPC so
// several deployers can reuse one warm copy of downloaded content.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"google.golang.org/grpc"

	"scene2d.dev/catalyst/cache"
	"scene2d.dev/catalyst/cache/grpccache"
)

func main() {
	fs := flag.NewFlagSet("scene-cached", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7777", "listen address")
	dir := fs.String("dir", "", "cache directory")

	_ = fs.Parse(os.Args[1:])
	if *dir == "" {
		fmt.Fprintln(os.Stderr, "scene-cached: -dir is required")
		os.Exit(2)
	}

	cas, err := cache.NewDir(*dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer()
	grpccache.RegisterCacheServer(s, &grpccache.Server{CAS: cas})

	fmt.Fprintf(os.Stderr, "scene-cached listening on %s (dir=%s)\n", lis.Addr().String(), *dir)
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
