// Package xarchive reads archives through owned handles over the [engine] package.
//
// A [ReadArchive] is configured with the filters and formats it may use, opened on a file or a buffer, and then
// iterated entry by entry:
//
//	a, err := xarchive.FromPath("archive.zip")
//	if err != nil {
//		return err
//	}
//	defer a.Close()
//
//	for e, err := range a.Entries() {
//		if err != nil {
//			return err
//		}
//		fmt.Println(e.Pathname())
//		e.Close()
//	}
//
// Every handle is released exactly once, either by Close or by a runtime cleanup once its owner becomes unreachable.
// Errors from the engine are reported as [*Error], failures reading the data source as [*IOError], and calls made in
// the wrong order as one of the state sentinels such as [ErrClosed] or [ErrNotOpen].
//
// Handles are not safe for concurrent use.
package xarchive
