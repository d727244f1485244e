// Package watcher turns raw filesystem notifications into debounced,
// ignore-filtered event batches for incremental reindexing.
//
// fsnotify provides the primary backend; where it cannot be initialized the
// watcher degrades to interval polling. Raw events are coalesced per path
// within a quiet window so editor save storms and git checkouts become one
// event per file. Paths excluded by the root .troveignore or by the
// hidden-entry rule never surface, while edits to the ignore file and the
// project config are reported as their own operations so a long-running
// process can resync.
//
// Usage:
//
//	w, err := watcher.New(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//	go w.Start(ctx, root)
//
//	for batch := range w.Events() {
//	    for _, ev := range batch {
//	        // apply ev to the index
//	    }
//	}
package watcher
