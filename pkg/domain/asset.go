package domain

import (
	"strings"
	"time"
)

const (
	// DefaultMaxBytes is the default ceiling on bytes received for a single transfer (500 MiB).
	DefaultMaxBytes int64 = 500 * 1024 * 1024
	// DefaultTimeout bounds the wait for a response, and the idle time between body chunks.
	DefaultTimeout = 30 * time.Second
)

// AssetRef identifies a remote resource and its intended local name.
type AssetRef struct {
	URL       string `json:"url"`
	Filename  string `json:"filename"`
	Extension string `json:"extension"`
}

// LocalName is the filename with the extension appended when it is not already present.
func (a AssetRef) LocalName() string {
	ext := strings.TrimPrefix(a.Extension, ".")
	if ext == "" || strings.HasSuffix(strings.ToLower(a.Filename), "."+strings.ToLower(ext)) {
		return a.Filename
	}
	return a.Filename + "." + ext
}

// AssetRecord is one entry of the catalog service's GET /all response.
type AssetRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Filename string `json:"filename"`
	Ext      string `json:"ext"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	Category string `json:"category"`
}

// Ref converts the record into the reference handed to the transfer core.
func (r AssetRecord) Ref() AssetRef {
	return AssetRef{URL: r.URL, Filename: r.Filename, Extension: r.Ext}
}

// Catalog is the decoded catalog payload, keyed by category name.
type Catalog struct {
	Categories map[string][]AssetRecord `json:"categories"`
}

// Find looks a record up by ID across all categories.
func (c Catalog) Find(id string) (AssetRecord, bool) {
	for _, records := range c.Categories {
		for _, r := range records {
			if r.ID == id {
				return r, true
			}
		}
	}
	return AssetRecord{}, false
}

// Limits bounds a single transfer. Zero fields mean "use the default".
type Limits struct {
	MaxBytes int64         `json:"maxBytes"`
	Timeout  time.Duration `json:"timeout"`
}

// DefaultLimits returns 500 MiB and 30 seconds.
func DefaultLimits() Limits {
	return Limits{MaxBytes: DefaultMaxBytes, Timeout: DefaultTimeout}
}

// WithDefaults fills unset fields from DefaultLimits.
func (l Limits) WithDefaults() Limits {
	if l.MaxBytes <= 0 {
		l.MaxBytes = DefaultMaxBytes
	}
	if l.Timeout <= 0 {
		l.Timeout = DefaultTimeout
	}
	return l
}

// DestinationKind tells where a transfer is allowed to write.
type DestinationKind int

const (
	// UserChosen is a path picked by the user through the save dialog.
	UserChosen DestinationKind = iota
	// ManagedTemp is a sanitized, token-suffixed name inside the managed temp area.
	ManagedTemp
)

func (k DestinationKind) String() string {
	switch k {
	case UserChosen:
		return "user-chosen"
	case ManagedTemp:
		return "managed-temp"
	default:
		return "unknown"
	}
}

// Destination is the resolved local target of a transfer.
type Destination struct {
	kind DestinationKind
	path string
}

// UserChosenPath wraps a path returned by the save dialog.
func UserChosenPath(path string) Destination {
	return Destination{kind: UserChosen, path: path}
}

// ManagedTempPath wraps a path produced by the temp area's sanitizer.
func ManagedTempPath(path string) Destination {
	return Destination{kind: ManagedTemp, path: path}
}

func (d Destination) Kind() DestinationKind { return d.kind }
func (d Destination) Path() string          { return d.path }

// TransferRequest is created per invocation and owned by the in-flight transfer.
type TransferRequest struct {
	Source      AssetRef
	Destination Destination
	Limits      Limits
}
