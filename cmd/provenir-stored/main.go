package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"google.golang.org/grpc"

	"github.com/provenir/provenir/storage/grpcstore"
	"github.com/provenir/provenir/storage/providerreg"
)

func main() {
	fs := flag.NewFlagSet("provenir-stored", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7777", "listen address")
	backend := fs.String("backend", "localfs", "storage backend name")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")
	var settings settingsFlag
	fs.Var(&settings, "setting", "Backend setting as key=value (repeatable, e.g. root=/var/provenir, pinata_jwt=...)")

	_ = fs.Parse(os.Args[1:])
	if *listBackends {
		for _, name := range providerreg.Names() {
			_, _ = fmt.Fprintln(os.Stdout, name)
		}
		return
	}

	provider, err := providerreg.Open(*backend, settings)
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
	grpcstore.RegisterStoreServer(s, &grpcstore.Server{Provider: provider})

	fmt.Fprintf(os.Stderr, "provenir-stored listening on %s (backend=%s)\n", lis.Addr().String(), *backend)
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type settingsFlag map[string]string

func (f *settingsFlag) String() string {
	if f == nil {
		return ""
	}
	parts := make([]string, 0, len(*f))
	for k, v := range *f {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (f *settingsFlag) Set(v string) error {
	k, val, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	if *f == nil {
		*f = make(map[string]string)
	}
	(*f)[strings.TrimSpace(k)] = val
	return nil
}
