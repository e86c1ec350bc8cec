// Package main provides the entry point for the zapreport CLI.
//
// zapreport runs the OWASP ZAP baseline, API and full scans against a list
// of web applications in containers, bundles the HTML reports into one zip
// archive and mails it to the security team.
//
// Usage:
//
//	zapreport run
//	zapreport run https://app.example.com https://api.example.com
//	zapreport history
//
// See --help for all available options.
package main

// main is the entry point for zapreport.
func main() {
	Execute()
}
