// Package discovery provides mDNS-based discovery of cast receivers.
//
// Cast receivers (Chromecast and compatible devices) advertise the
// "_googlecast._tcp" service type. Their TXT records carry the friendly name
// ("fn"), model ("md"), firmware version ("ve"), running status ("rs") and a
// stable id ("id").
//
// # Discovery Process
//
//  1. A Locator stops any browse left running and clears its registry
//  2. It starts browsing through a Browser (ZeroconfBrowser in production)
//  3. Each announcement is parsed by ParseAnnouncement; announcements without
//     "fn", with a malformed TXT entry, or with an unusable address are dropped
//  4. Accepted receivers go into a Registry, which notifies subscribers and
//     then appends them
//  5. When the context is done the browse is stopped and the registry
//     snapshot is returned
//
// # Usage Example
//
//	locator := discovery.NewLocator(discovery.NewZeroconfBrowser())
//	receivers, err := locator.FindReceivers() // 2 second budget
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range receivers {
//	    fmt.Printf("Found: %s (%s) at %s\n", r.Name, r.Model, r.Address)
//	}
//
// Use FindReceiversWithContext for a custom deadline or to stop early.
//
// # Live Notifications
//
// Subscribe registers a synchronous callback; Notifications returns a
// buffered channel that never blocks discovery. Both see receivers in
// registry order, before they appear in a snapshot.
//
// # Deduplication
//
// By default a receiver seen again at the same address and port is ignored
// (DedupByAddress). DedupNone records every announcement, including
// periodic re-announcements of the same device.
//
// # Thread Safety
//
// Registry and Locator are safe for concurrent use. A Locator runs one
// session at a time; a concurrent call returns ErrSessionActive.
package discovery
