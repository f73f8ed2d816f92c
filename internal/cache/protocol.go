package cache

// JSON protocol for the cache daemon over a Unix domain socket.
// Each request line gets exactly one response line.

// Operations understood by Serve.
const (
	OpLoad          = "load"
	OpList          = "list"
	OpUpsert        = "upsert"
	OpDeleteExpired = "delete_expired"
	OpPing          = "ping"
)

type Request struct {
	Op     string `json:"op"`
	Key    Key    `json:"key,omitempty"`
	Entry  *Entry `json:"entry,omitempty"`
	Source string `json:"source,omitempty"`
	Movie  string `json:"movie,omitempty"`
	Date   string `json:"date,omitempty"`
	// NowUnixMilli is the cutoff for delete_expired.
	NowUnixMilli int64 `json:"now,omitempty"`
}

type Response struct {
	OK       bool    `json:"ok"`
	NotFound bool    `json:"not_found,omitempty"`
	Entry    *Entry  `json:"entry,omitempty"`
	Entries  []Entry `json:"entries,omitempty"`
	Count    int     `json:"count,omitempty"`
	Error    string  `json:"error,omitempty"`
}
