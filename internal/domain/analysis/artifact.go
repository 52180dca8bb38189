package analysis

import (
	"sort"
	"strings"
	"time"
)

// Artifacts for one submission live under saved/<token>/ and share the
// timestamp token. The token is the sole join key, there is no index.
const (
	KeyPrefix   = "saved/"
	tokenLayout = "20060102_150405"
)

// Artifact kinds inside a group.
const (
	KindContext = "context"
	KindImage   = "mri"
	KindSummary = "summary"
)

// NewToken derives the timestamp token for a submission. Second resolution,
// fixed width, zero padded, so tokens sort lexicographically.
func NewToken(t time.Time) string {
	return t.UTC().Format(tokenLayout)
}

// KeySet holds the three object keys of one stored submission.
type KeySet struct {
	Token   string `json:"timestamp"`
	JSON    string `json:"json_file"`
	Image   string `json:"image_file"`
	Summary string `json:"summary_file"`
}

// KeysFor lays out the keys for a token. imageExt includes the dot.
func KeysFor(token, imageExt string) KeySet {
	dir := KeyPrefix + token + "/"
	return KeySet{
		Token:   token,
		JSON:    dir + KindContext + "_" + token + ".json",
		Image:   dir + KindImage + "_" + token + imageExt,
		Summary: dir + KindSummary + "_" + token + ".txt",
	}
}

// ObjectInfo is the listing view of one stored object.
type ObjectInfo struct {
	Key          string
	LastModified time.Time
}

// Group is the set of keys sharing one token.
type Group struct {
	Token      string
	JSONKey    string
	ImageKey   string
	SummaryKey string
}

// Complete reports whether all three artifacts are present.
func (g Group) Complete() bool {
	return g.JSONKey != "" && g.ImageKey != "" && g.SummaryKey != ""
}

// parseArtifactKey splits saved/<token>/<kind>_<token><ext> into its token
// and kind. Keys outside the convention are skipped.
func parseArtifactKey(key string) (token, kind string, ok bool) {
	rest, found := strings.CutPrefix(key, KeyPrefix)
	if !found {
		return "", "", false
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	token = parts[0]
	kind, _, found = strings.Cut(parts[1], "_")
	if !found {
		return "", "", false
	}
	switch kind {
	case KindContext, KindImage, KindSummary:
		return token, kind, true
	}
	return "", "", false
}

// GroupObjects buckets a listing by token and returns only complete groups,
// newest token first. Partial writes stay invisible.
func GroupObjects(objs []ObjectInfo) []Group {
	byToken := make(map[string]*Group)
	for _, o := range objs {
		token, kind, ok := parseArtifactKey(o.Key)
		if !ok {
			continue
		}
		g, exists := byToken[token]
		if !exists {
			g = &Group{Token: token}
			byToken[token] = g
		}
		switch kind {
		case KindContext:
			g.JSONKey = o.Key
		case KindImage:
			g.ImageKey = o.Key
		case KindSummary:
			g.SummaryKey = o.Key
		}
	}

	groups := make([]Group, 0, len(byToken))
	for _, g := range byToken {
		if g.Complete() {
			groups = append(groups, *g)
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Token > groups[j].Token
	})
	return groups
}

// LatestContext picks the most recently modified context object from a
// listing. ok is false when the listing holds none.
func LatestContext(objs []ObjectInfo) (ObjectInfo, bool) {
	var latest ObjectInfo
	found := false
	for _, o := range objs {
		_, kind, ok := parseArtifactKey(o.Key)
		if !ok || kind != KindContext {
			continue
		}
		if !found || o.LastModified.After(latest.LastModified) {
			latest = o
			found = true
		}
	}
	return latest, found
}

// HistoryEntry is one reconstructed submission, shaped for the frontend.
// Image and JSON references are short-lived signed URLs, not bytes.
type HistoryEntry struct {
	ID        string `json:"id"`
	ImageURL  string `json:"image_url"`
	Summary   string `json:"summary"`
	Timestamp string `json:"timestamp"`
	JSONURL   string `json:"json_url"`
	FullData  Record `json:"full_data"`
}

// LatestAnalysis is the read-back of the most recent submission, used as
// grounding context for chat.
type LatestAnalysis struct {
	Record   Record
	Token    string
	ImageKey string
	ImageURL string
}
