// Package watcher reacts to lines appended to a single log file.
//
// A Session owns the file handle and a byte cursor into the file. A
// Dispatcher watches the file's parent directory with fsnotify and routes
// each event to the Session:
//
//   - Write  → OnModify: scan complete lines after the cursor
//   - Create → OnCreate: reopen, cursor = 0
//   - Remove → OnDelete: close, wait for re-creation
//   - Rename → OnMovedFrom: close, wait for re-creation
//
// Each matching line runs the configured shell command and then blocks the
// dispatch loop for the cooldown, so commands never overlap. Every notice the
// Session prints carries a random instance tag, and lines containing that
// tag are never matched, so a command that logs into the watched file does
// not trigger itself.
//
// SIGHUP makes the Dispatcher call Session.Reload, which reopens the file
// and rescans it from the start.
//
// Example usage:
//
//	s, err := watcher.New(watcher.Options{
//		Path:     "/var/log/app.log",
//		Pattern:  "/err.*timeout/",
//		Command:  "systemctl restart app",
//		Cooldown: 3 * time.Second,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer s.Close()
//
//	src, err := watcher.NewFSSource(filepath.Dir(s.Path()))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer src.Close()
//
//	d := watcher.NewDispatcher(s, src, reloadCh, logger)
//	if err := d.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
package watcher
