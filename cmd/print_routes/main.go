package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/vikasavnish/tradehub/internal/api"
	"github.com/vikasavnish/tradehub/internal/config"
	"github.com/vikasavnish/tradehub/internal/websocket"
)

// Prints the HTTP routes of the server without connecting to anything
func main() {
	router := api.SetupRouter(config.Load(), api.Services{}, websocket.NewHub())

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tPATH")
	for _, route := range api.Routes(router) {
		fmt.Fprintf(tw, "%s\t%s\n", route.Methods, route.Path)
	}
	tw.Flush()
}
