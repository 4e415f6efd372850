// Package sqlxrepos implements the domain repositories on PostgreSQL
// via sqlx.
package sqlxrepos

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/shulehq/shule/core"
)

func pqStringArray(ss []string) pq.StringArray {
	return pq.StringArray(ss)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func nullStr(s string) null.String {
	return null.NewString(s, s != "")
}

func nullTime(t time.Time) null.Time {
	return null.NewTime(t.UTC(), !t.IsZero())
}

// jsonbIn marshals a map for a JSONB column; nil maps become SQL NULL.
func jsonbIn(m map[string]interface{}) (interface{}, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling jsonb")
	}
	return b, nil
}

func jsonbOut(b []byte) (map[string]interface{}, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "unmarshaling jsonb")
	}
	return m, nil
}

// orderClause renders an ORDER BY from generic orderings, falling back to
// def when none are provided. Field names come from trusted callers only.
func orderClause(ordering []core.DBOrdering, def string) string {
	if len(ordering) == 0 {
		if def == "" {
			return ""
		}
		return " ORDER BY " + def
	}
	clause := " ORDER BY "
	for i, o := range ordering {
		if i > 0 {
			clause += ", "
		}
		clause += o.String()
	}
	return clause
}
