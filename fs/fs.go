package appfs

import "embed"

// FS holds the files shipped inside the binary (database migrations).
//go:embed migrations
var FS embed.FS
