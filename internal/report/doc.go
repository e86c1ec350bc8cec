// Package report renders the summary of a zapreport run.
//
// This package contains writers for different output formats:
//   - MarkdownWriter: the mail body source and the plain-text alternative
//   - HTMLWriter: the markdown rendered to an HTML document for mail clients
//   - SimpleWriter: human-readable text output for terminal display
//   - JSONWriter: the raw run record for tool integration
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
