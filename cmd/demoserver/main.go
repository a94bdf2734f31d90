// Command demoserver starts a small local site for end-to-end audits.
// Usage: go run ./cmd/demoserver [port]
// Default port: 9999
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/raysh454/sitepulse/internal/demoserver"
)

func main() {
	cfg := demoserver.DefaultConfig()

	// Optional: custom port from command line
	if len(os.Args) > 1 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil || port < 1 || port > 65535 {
			log.Fatalf("Invalid port: %s", os.Args[1])
		}
		cfg.Port = port
	}

	fmt.Println("===========================================")
	fmt.Println("   SitePulse Demo Server")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("Version 1 pages are built to trigger audit rules:")
	fmt.Println("  - Missing or badly sized titles and meta descriptions")
	fmt.Println("  - Heading skips and duplicate H1s")
	fmt.Println("  - Images without alt text or dimensions")
	fmt.Println("  - Render-blocking scripts, stylesheets and fonts")
	fmt.Println("  - A broken link (/old-page) and a redirect (/moved)")
	fmt.Println()
	fmt.Println("Switch pages to version 2 from the control panel and audit")
	fmt.Println("again to see the history diff.")
	fmt.Println()

	server := demoserver.NewDemoServer(cfg)
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
