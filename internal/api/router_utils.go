package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vikasavnish/tradehub/internal/logger"
)

// RouteInfo describes one registered route
type RouteInfo struct {
	Methods string
	Path    string
}

// Routes walks the router and lists every route with a path
func Routes(r *mux.Router) []RouteInfo {
	var out []RouteInfo
	_ = r.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}

		// If no methods are specified, assume all methods
		methodStr := "ANY"
		if methods, err := route.GetMethods(); err == nil && len(methods) > 0 {
			methodStr = strings.Join(methods, ",")
		}

		out = append(out, RouteInfo{Methods: methodStr, Path: pathTemplate})
		return nil
	})
	return out
}

// PrintRoutes logs every registered route at debug level
func PrintRoutes(r *mux.Router) {
	for _, route := range Routes(r) {
		logger.Debug("route", zap.String("methods", route.Methods), zap.String("path", route.Path))
	}
}

// PrintRoutesHandler returns a handler function to print all routes
func PrintRoutesHandler(router *mux.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")

		fmt.Fprintln(w, "=== Registered Routes ===")
		fmt.Fprintln(w, "METHOD\tPATH")
		fmt.Fprintln(w, "-------------------------------")
		for _, route := range Routes(router) {
			fmt.Fprintf(w, "%s\t%s\n", route.Methods, route.Path)
		}
		fmt.Fprintln(w, "==============================")
	}
}
