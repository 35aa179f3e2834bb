// Package policy owns the evolution of IAM policy documents that
// express a principal's access to bucket ARNs.
//
// A document is a list of statements in a canonical schema: one list
// statement (ListBucket/GetBucketLocation on bucket ARNs) and up to
// one object statement per access level (readonly, readwrite) on
// `arn:...:bucket/*` resources. Unknown statements round-trip
// untouched.
package policy

import (
	"encoding/json"
	"sort"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

const Version = "2012-10-17"

// Sids of the canonical statements. Serialisation order is fixed by
// this sequence so documents are stable across edits.
const (
	SidList      = "list"
	SidReadOnly  = "readonly"
	SidReadWrite = "readwrite"
)

var sidOrder = map[string]int{SidList: 0, SidReadOnly: 1, SidReadWrite: 2}

var (
	listActions      = []string{"s3:ListBucket", "s3:GetBucketLocation"}
	readOnlyActions  = []string{"s3:GetObject", "s3:GetObjectAcl", "s3:GetObjectVersion"}
	readWriteActions = []string{
		"s3:GetObject", "s3:GetObjectAcl", "s3:GetObjectVersion",
		"s3:DeleteObject", "s3:DeleteObjectVersion",
		"s3:PutObject", "s3:PutObjectAcl",
		"s3:RestoreObject",
	}
)

// Statement is one entry of a policy document. Resources are kept
// sorted; Action and Resource marshal as plain JSON arrays so a
// parse-serialise round trip is stable modulo key order.
type Statement struct {
	Sid      string   `json:"Sid,omitempty"`
	Effect   string   `json:"Effect"`
	Action   []string `json:"Action"`
	Resource []string `json:"Resource"`
}

func (s *Statement) hasResource(arn string) bool {
	for _, r := range s.Resource {
		if r == arn {
			return true
		}
	}
	return false
}

func (s *Statement) addResource(arn string) {
	if s.hasResource(arn) {
		return
	}
	s.Resource = append(s.Resource, arn)
	sort.Strings(s.Resource)
}

func (s *Statement) removeResource(arn string) {
	kept := s.Resource[:0]
	for _, r := range s.Resource {
		if r != arn {
			kept = append(kept, r)
		}
	}
	s.Resource = kept
}

// Document is a parsed policy document.
type Document struct {
	Version   string       `json:"Version"`
	Statement []*Statement `json:"Statement"`
}

// Parse decodes a raw JSON policy document.
func Parse(raw []byte) (*Document, error) {
	d := &Document{}
	if err := json.Unmarshal(raw, d); err != nil {
		return nil, err
	}
	if d.Version == "" {
		d.Version = Version
	}
	return d, nil
}

// NewDocument returns an empty canonical document.
func NewDocument() *Document {
	return &Document{Version: Version}
}

// SidConsole marks the statement held by carriers with no grants: the
// provider rejects a document whose statement list is empty as
// malformed, so an at-rest managed policy keeps one harmless
// bucket-listing statement instead.
const SidConsole = "console"

var consoleActions = []string{"s3:ListAllMyBuckets", "s3:GetBucketLocation"}

// Placeholder returns the minimal document the provider accepts.
func Placeholder() *Document {
	return &Document{
		Version: Version,
		Statement: []*Statement{{
			Sid:      SidConsole,
			Effect:   "Allow",
			Action:   consoleActions,
			Resource: []string{"arn:aws:s3:::*"},
		}},
	}
}

// Empty reports whether the document carries no grant statements.
// The console placeholder does not count as a grant.
func (d *Document) Empty() bool {
	for _, s := range d.Statement {
		if s.Sid == SidConsole {
			continue
		}
		if len(s.Resource) > 0 {
			return false
		}
	}
	return true
}

// Serialise encodes the document. Empty statements are elided and
// statement order follows the fixed Sid order; statements with Sids
// outside the canonical set keep their relative order after them.
func (d *Document) Serialise() ([]byte, error) {
	kept := make([]*Statement, 0, len(d.Statement))
	for _, s := range d.Statement {
		if len(s.Resource) == 0 {
			continue
		}
		kept = append(kept, s)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		oi, iok := sidOrder[kept[i].Sid]
		oj, jok := sidOrder[kept[j].Sid]
		if iok && jok {
			return oi < oj
		}
		return iok && !jok
	})

	out := Document{Version: d.Version, Statement: kept}
	return json.Marshal(out)
}

func (d *Document) statement(sid string) *Statement {
	for _, s := range d.Statement {
		if s.Sid == sid {
			return s
		}
	}
	return nil
}

func (d *Document) ensureStatement(sid string, actions []string) *Statement {
	if s := d.statement(sid); s != nil {
		return s
	}
	s := &Statement{Sid: sid, Effect: "Allow", Action: actions}
	d.Statement = append(d.Statement, s)
	return s
}

func sidForLevel(level domain.AccessLevel) (string, []string) {
	if level == domain.ReadWrite {
		return SidReadWrite, readWriteActions
	}
	return SidReadOnly, readOnlyActions
}

// GrantAccess adds an object ARN to the statement matching level,
// removing it from the other level statement so an ARN lives in
// exactly one.
func (d *Document) GrantAccess(resourceARN string, level domain.AccessLevel) {
	sid, actions := sidForLevel(level)
	other := SidReadWrite
	if sid == SidReadWrite {
		other = SidReadOnly
	}
	if s := d.statement(other); s != nil {
		s.removeResource(resourceARN)
	}
	d.ensureStatement(sid, actions).addResource(resourceARN)
}

// GrantListAccess adds the bucket ARN to the list statement.
func (d *Document) GrantListAccess(bucketARN string) {
	d.ensureStatement(SidList, listActions).addResource(bucketARN)
}

// RevokeAccess removes the ARN from every statement.
func (d *Document) RevokeAccess(resourceARN string) {
	for _, s := range d.Statement {
		s.removeResource(resourceARN)
	}
}

// ResetAccess removes every ARN starting with bucketARN — the bucket
// itself and all sub-prefix object ARNs. This is the canonical
// "revoke all grants on this bucket for this principal".
func (d *Document) ResetAccess(bucketARN string) {
	for _, s := range d.Statement {
		kept := s.Resource[:0]
		for _, r := range s.Resource {
			if r != bucketARN && !hasARNPrefix(r, bucketARN) {
				kept = append(kept, r)
			}
		}
		s.Resource = kept
	}
}

func hasARNPrefix(arn string, bucketARN string) bool {
	if len(arn) <= len(bucketARN) {
		return false
	}
	return arn[:len(bucketARN)] == bucketARN && arn[len(bucketARN)] == '/'
}
