package zenodo

import (
	"bytes"
	"strings"
)

// ID is a record or deposition identifier. The API sends numbers; it is kept
// as an opaque string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	*id = ID(data)
	return nil
}

func (id ID) String() string {
	return string(id)
}

// RecordSummary is the part of a published record the series lookup needs.
type RecordSummary struct {
	ID    string
	Title string
}

// RecordQuery filters the public records search.
type RecordQuery struct {
	Community   string
	Size        int
	AllVersions bool
	Sort        string
}

type searchResponse struct {
	Hits *struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

type searchHit struct {
	ID       *ID `json:"id"`
	Metadata *struct {
		Title string `json:"title"`
	} `json:"metadata"`
}

// Deposition is a draft (or published) upload container.
type Deposition struct {
	ID        ID               `json:"id"`
	State     string           `json:"state,omitempty"`
	Submitted bool             `json:"submitted,omitempty"`
	Links     DepositionLinks  `json:"links"`
	Files     []DepositionFile `json:"files,omitempty"`
}

type DepositionLinks struct {
	Self        string `json:"self,omitempty"`
	HTML        string `json:"html,omitempty"`
	Bucket      string `json:"bucket,omitempty"`
	LatestDraft string `json:"latest_draft,omitempty"`
	Publish     string `json:"publish,omitempty"`
}

// LatestDraftID extracts the draft identifier from the latest_draft link
// returned by the new-version action.
func (d *Deposition) LatestDraftID() string {
	link := strings.TrimRight(d.Links.LatestDraft, "/")
	if link == "" {
		return ""
	}
	return link[strings.LastIndex(link, "/")+1:]
}

type DepositionFile struct {
	ID       string `json:"id"`
	Filename string `json:"filename,omitempty"`
	Filesize int64  `json:"filesize,omitempty"`
	Checksum string `json:"checksum,omitempty"`
}
