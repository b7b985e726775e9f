package utils

// Version is set at the build time with -ldflags "-X".
var Version = "0.1.0-dev"
