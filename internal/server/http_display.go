package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRateLimitInfo()
}

func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET    /health                    - Health check")
	fmt.Println("  GET    /stats                     - Server statistics")
	fmt.Println("  GET    /api/scans?q=              - List scans")
	fmt.Println("  POST   /api/scans                 - Run a scan")
	fmt.Println("  GET    /api/scans/{id}            - Scan detail")
	fmt.Println("  DELETE /api/scans/{id}            - Delete a scan")
	fmt.Println("  GET    /api/dashboard             - Sidebar and selected scan")
	fmt.Println("  GET    /api/progress              - Progress summary")
	fmt.Println("  *      /api/resumes/...           - Resume storage")
	fmt.Println("  POST   /api/public/auth/...       - Sign up, sign in, sign out")
	if s.Analyzer != nil {
		fmt.Printf("Scan engine: %s\n", s.Analyzer.Name())
	}
}

func (s *Server) displayAuthInfo() {
	switch {
	case len(s.APIKeys) > 0 && s.Verifier != nil:
		fmt.Printf("API authentication: API keys (%d) and ID tokens\n", len(s.APIKeys))
	case len(s.APIKeys) > 0:
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
	case s.Verifier != nil:
		fmt.Println("API authentication: ID tokens")
	default:
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		return
	}
	fmt.Println("Rate limiting: DISABLED")
}
