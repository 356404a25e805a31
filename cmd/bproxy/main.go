// Package main runs the bproxy reverse proxy.
package main

import "github.com/advdv/bcycle/bproxy"

func main() {
	bproxy.NewApp(bproxy.ProxyRoutes).Run()
}
