// Command xarchive lists and extracts archives from local files or S3.
package main

import (
	"github.com/nguyengg/xarchive/internal/cmd"
)

func main() {
	_, err := cmd.NewParser().Parse()
	exit(err)
}
