// Command gogvault maintains a local manifest of a GOG library: it
// reconciles the manifest against the remote catalog, assigns stable folder
// names, and reports on the result.
package main
