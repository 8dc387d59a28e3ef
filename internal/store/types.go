package store

// VectorDimension is the embedding dimension used by the chunks and
// course-title columns. The schema pins vector(768); embedders that
// output larger vectors must be configured to truncate.
const VectorDimension = 768

// Lesson is one lesson of a course.
type Lesson struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

// Course holds the catalog metadata for a single course.
type Course struct {
	Title      string   `json:"title"`
	Link       string   `json:"link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// Chunk is one embeddable piece of course content.
// LessonNumber is nil for content that precedes the first lesson marker.
type Chunk struct {
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
	Content      string
}

// ResultMeta describes where a search hit came from.
type ResultMeta struct {
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
}

// SearchResults carries the outcome of a content search. Parallel slices:
// Documents[i] was found at Metadata[i] with cosine distance Distances[i].
//
// Retrieval-level trouble (unresolvable course filter, backend failure)
// is reported in Err rather than as a Go error so callers can surface it
// as plain text.
type SearchResults struct {
	Documents []string
	Metadata  []ResultMeta
	Distances []float64
	Err       string
}

// IsEmpty reports whether the search produced no documents.
func (r SearchResults) IsEmpty() bool {
	return len(r.Documents) == 0
}
