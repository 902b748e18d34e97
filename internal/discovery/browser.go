package discovery

// AnnouncementHandler receives announcements from a Browser. It may be called
// concurrently from several goroutines.
type AnnouncementHandler func(Announcement)

// Browser is the mDNS transport a Locator drives. Only one browse may be
// active at a time.
type Browser interface {
	// Browse starts browsing serviceType and delivers announcements to handler
	// until Stop is called.
	Browse(serviceType string, handler AnnouncementHandler) error

	// Stop ends the active browse. Stopping an idle browser is a no-op.
	Stop() error

	// Browsing reports whether a browse is active.
	Browsing() bool
}
