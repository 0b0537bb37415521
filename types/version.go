package types

// Version is the canonical project version, reported by the CLI (the
// version command and the app's version string).
const Version = "0.6.1"
