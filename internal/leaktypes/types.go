// Package leaktypes holds the document shapes stored in and read from the
// leak store: metadata describing a parsed leak file, raw parsed identities,
// customer records and their per-leak progress status.
package leaktypes

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LeakStatus is the lifecycle state of a leak, either at the file-parsing
// level (Metadata.Status) or at the per-customer delivery level
// (Status.LeakStatus).
type LeakStatus string

const (
	LeakStatusNew        LeakStatus = "new"
	LeakStatusInProgress LeakStatus = "in-progress"
	LeakStatusFailed     LeakStatus = "failed"
	LeakStatusFinished   LeakStatus = "finished"
	// LeakStatusDisabled marks a leak as manually excluded from delivery,
	// without needing to delete or recreate its metadata document.
	LeakStatusDisabled LeakStatus = "disabled"
	LeakStatusUnknown  LeakStatus = "unknown"
)

// FieldType enumerates the kind of column a parser detected in a leak file.
// The delivery path itself only cares about email/phone/password/domain;
// the rest round-trip for completeness.
type FieldType string

const (
	FieldTypePassword   FieldType = "password"
	FieldTypeEmail      FieldType = "email"
	FieldTypeDomain     FieldType = "domain"
	FieldTypeUsername   FieldType = "username"
	FieldTypeHashMd5    FieldType = "hash-md5"
	FieldTypeHashSha1   FieldType = "hash-sha1"
	FieldTypeHashSha23  FieldType = "hash-sha23"
	FieldTypeHashMySql  FieldType = "hash-mysql"
	FieldTypeHashBcrypt FieldType = "hash-bcrypt"
	FieldTypeHashPhpBb3 FieldType = "hash-phpbb3"
	FieldTypeHashMcf    FieldType = "hash-mcf"
	FieldTypeHashPhc    FieldType = "hash-phc"
	FieldTypeBlz        FieldType = "blz"
	FieldTypeIban       FieldType = "iban"
	FieldTypeIP         FieldType = "ip"
	FieldTypeCreditCard FieldType = "cc"
	FieldTypePhone      FieldType = "phone"
	FieldTypeDate       FieldType = "date"
	FieldTypeTimestamp  FieldType = "timestamp"
	FieldTypeUnknown    FieldType = "unknown"
)

// FileType is the on-disk shape of the leak's source file.
type FileType string

const (
	FileTypeDSV     FileType = "dsv"
	FileTypeSQL     FileType = "sql"
	FileTypeUnknown FileType = "unknown"
)

// ExtendedInformation carries the auxiliary, often-empty descriptive fields
// a leak can accumulate when it has been merged from multiple sources.
type ExtendedInformation struct {
	LeakURLs         []string `bson:"leak_urls,omitempty" json:"leak_urls,omitempty"`
	LeakSources      []string `bson:"leak_sources,omitempty" json:"leak_sources,omitempty"`
	FilePaths        []string `bson:"file_paths,omitempty" json:"file_paths,omitempty"`
	FileNames        []string `bson:"file_names,omitempty" json:"file_names,omitempty"`
	DatesCollected   []int64  `bson:"dates_collected,omitempty" json:"dates_collected,omitempty"`
	DatesPublished   []int64  `bson:"dates_published,omitempty" json:"dates_published,omitempty"`
	DatesApproxLeak  []int64  `bson:"dates_approx_leaked,omitempty" json:"dates_approx_leaked,omitempty"`
}

// IsEmpty reports whether every slice in the struct is empty.
func (e ExtendedInformation) IsEmpty() bool {
	return len(e.LeakURLs) == 0 && len(e.LeakSources) == 0 && len(e.FilePaths) == 0 &&
		len(e.FileNames) == 0 && len(e.DatesCollected) == 0 && len(e.DatesPublished) == 0 &&
		len(e.DatesApproxLeak) == 0
}

// Metadata describes one parsed leak file: where it came from, how it was
// parsed, and whether it is ready for delivery.
type Metadata struct {
	ID                  primitive.ObjectID    `bson:"_id,omitempty"`
	LeakID              string                `bson:"leak_id"`
	Parser              string                `bson:"parser,omitempty"`
	FileName            string                `bson:"file_name,omitempty"`
	FilePath            string                `bson:"filepath,omitempty"`
	DateParsed          int64                 `bson:"date_parsed,omitempty"`
	FileSize            int64                 `bson:"file_size,omitempty"`
	FileLineCount       int64                 `bson:"file_line_count,omitempty"`
	ExtractedIdentities int64                 `bson:"parsed_identities"`
	AlreadyReadLines    int64                 `bson:"already_read_lines"`
	Status              LeakStatus            `bson:"status"`
	FileType            FileType              `bson:"file_type"`
	ExtractedTypes      []FieldType           `bson:"detected_fields,omitempty"`
	LeakURL             string                `bson:"leak_url,omitempty"`
	LeakSource          string                `bson:"leak_source,omitempty"`
	DateCollected       int64                 `bson:"date_collected,omitempty"`
	DatePublished       int64                 `bson:"date_published,omitempty"`
	DateApproxLeaked    int64                 `bson:"date_approx_leaked,omitempty"`
	ExtendedInformation *ExtendedInformation  `bson:"extended_information,omitempty"`
}

// Identity is one raw parsed record as produced by the leak-parsing
// pipeline, stored with every detected field already bucketed by type.
type Identity struct {
	ID         primitive.ObjectID    `bson:"_id,omitempty"`
	LeakID     string                `bson:"leak_id"`
	LineNumber int64                 `bson:"linenumber,omitempty"`
	Email      []string              `bson:"email,omitempty"`
	Phone      []string              `bson:"phone,omitempty"`
	Password   []string              `bson:"password,omitempty"`
	Hash       map[string][]string   `bson:"hash,omitempty"`
	CC         []string              `bson:"cc,omitempty"`
	IBAN       []string              `bson:"iban,omitempty"`
	Domain     []string              `bson:"domain,omitempty"`
	BLZ        []string              `bson:"blz,omitempty"`
	User       []string              `bson:"user,omitempty"`
	IP         []string              `bson:"ip,omitempty"`
	Date       []string              `bson:"date,omitempty"`
	Unknown    []string              `bson:"unknown,omitempty"`
}

// PartialIdentity is the trimmed projection of an Identity actually needed
// by the delivery path: the object id plus the four identifier/credential
// field groups.
type PartialIdentity struct {
	ObjectID  primitive.ObjectID `bson:"_id" json:"object_id"`
	Emails    []string           `bson:"email" json:"emails"`
	Phones    []string           `bson:"phone" json:"phones"`
	Domains   []string           `bson:"domain" json:"domains"`
	Passwords []string           `bson:"password" json:"passwords"`
}

// NewPartialIdentity projects a raw Identity down to a PartialIdentity,
// assigning a fresh ObjectID if the source document somehow lacks one.
func NewPartialIdentity(id Identity) PartialIdentity {
	objID := id.ID
	if objID.IsZero() {
		objID = primitive.NewObjectID()
	}
	return PartialIdentity{
		ObjectID:  objID,
		Emails:    id.Email,
		Phones:    id.Phone,
		Domains:   id.Domain,
		Passwords: id.Password,
	}
}

// IDPasswordPair is one flattened (identifier, password) credential.
type IDPasswordPair struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

// MappedIdentity is the wire shape returned to customers: the original
// object id plus every credential pair the flattening step produced.
type MappedIdentity struct {
	ObjectID    primitive.ObjectID `json:"object_id"`
	Credentials []IDPasswordPair   `json:"credentials"`
}

// Customer is the per-tenant record: its bearer token lookup key (APIKey),
// its salt, and the leaks it has already been handed the newest-leak
// pointer for.
type Customer struct {
	CustomerID    int32    `bson:"customer_id"`
	HandledLeaks  []string `bson:"handled_leaks"`
	CustomerSalt  string   `bson:"customer_salt"`
	APIKey        string   `bson:"api_key"`
}

// LeakResult records a customer-submitted tally of how many identities
// they actually ingested and how many matched their own records.
type LeakResult struct {
	IdentitiesReceived uint32 `bson:"identities_received" json:"identities_received"`
	FullMatches        int32  `bson:"full_matches" json:"full_matches"`
}

// Status is the per-(customer, leak) progress row: how many identities are
// left, where the cursor last stopped, and the delivery-level lifecycle
// state.
type Status struct {
	ID                   primitive.ObjectID  `bson:"_id,omitempty"`
	CustomerID           int32               `bson:"customer_id"`
	CurrentLeakID        string              `bson:"current_leak_id"`
	IdentitiesLeft       uint32              `bson:"identities_left"`
	LastReceivedIdentity *primitive.ObjectID `bson:"last_received_identity,omitempty"`
	LeakStatus           LeakStatus          `bson:"leak_status,omitempty"`
	LeakResult           *LeakResult         `bson:"leak_result,omitempty"`
}

// Identifier is a wire-level kind of identifier a customer asked to have
// salted and returned.
type Identifier string

const (
	IdentifierEmail Identifier = "EMAIL"
	IdentifierPhone Identifier = "PHONE"
)
