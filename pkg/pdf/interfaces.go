package pdf

// Document is an opened PDF document
type Document interface {
	// PageCount returns the total number of pages
	PageCount() int

	// Page returns a specific page by index (0-based)
	Page(index int) (Page, error)

	// Close releases resources associated with the document
	Close() error
}

// Page is a single page of a document
type Page interface {
	// Index returns the 0-based page index
	Index() int

	// Width returns the page width in points
	Width() float64

	// Height returns the page height in points
	Height() float64

	// Content returns the painted paths, text spans and images of the page
	Content() (*PageContent, error)
}
