package gdocs

// Wire types for the subset of the Docs and Drive APIs this client
// touches. Field sets are trimmed to what the server reads.

type document struct {
	DocumentID  string                     `json:"documentId"`
	Title       string                     `json:"title"`
	Body        body                       `json:"body"`
	NamedRanges map[string]namedRangeGroup `json:"namedRanges"`
}

type body struct {
	Content []structuralElement `json:"content"`
}

type structuralElement struct {
	StartIndex int64      `json:"startIndex"`
	EndIndex   int64      `json:"endIndex"`
	Paragraph  *paragraph `json:"paragraph,omitempty"`
	Table      *table     `json:"table,omitempty"`
}

type paragraph struct {
	Elements []paragraphElement `json:"elements"`
}

type paragraphElement struct {
	StartIndex int64    `json:"startIndex"`
	EndIndex   int64    `json:"endIndex"`
	TextRun    *textRun `json:"textRun,omitempty"`
}

type textRun struct {
	Content string `json:"content"`
}

type table struct {
	TableRows []tableRow `json:"tableRows"`
}

type tableRow struct {
	TableCells []tableCell `json:"tableCells"`
}

type tableCell struct {
	Content []structuralElement `json:"content"`
}

type namedRangeGroup struct {
	NamedRanges []namedRange `json:"namedRanges"`
}

type namedRange struct {
	NamedRangeID string      `json:"namedRangeId"`
	Name         string      `json:"name"`
	Ranges       []docsRange `json:"ranges"`
}

type docsRange struct {
	StartIndex int64 `json:"startIndex"`
	EndIndex   int64 `json:"endIndex"`
}

// batchUpdate requests

type batchUpdateRequest struct {
	Requests []updateRequest `json:"requests"`
}

type updateRequest struct {
	CreateNamedRange *createNamedRangeRequest `json:"createNamedRange,omitempty"`
	DeleteNamedRange *deleteNamedRangeRequest `json:"deleteNamedRange,omitempty"`
}

type createNamedRangeRequest struct {
	Name  string    `json:"name"`
	Range docsRange `json:"range"`
}

type deleteNamedRangeRequest struct {
	Name string `json:"name"`
}

// Drive listing

type driveFileList struct {
	Files         []driveFile `json:"files"`
	NextPageToken string      `json:"nextPageToken"`
}

type driveFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ModifiedTime string `json:"modifiedTime"`
}
