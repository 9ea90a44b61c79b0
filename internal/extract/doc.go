// Package extract writes the response bodies recorded in a HAR archive to
// a local directory tree, deriving each file's path from its request URL,
// and collects the set of distinct hosts observed in the capture.
package extract
