package models

// SourceKind tags a configured garden root.
type SourceKind string

const (
	// KindGarden roots hold one subdirectory per user.
	KindGarden SourceKind = "garden"
	// KindStream roots use the garden layout for scraped activity streams.
	KindStream SourceKind = "stream"
	// KindRoot is a single garden whose last path segment names the user.
	KindRoot SourceKind = "root"
)

// WorkItem is one garden to import.
type WorkItem struct {
	User string
	Path string // garden directory
	Kind SourceKind
}
