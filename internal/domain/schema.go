package domain

import (
	"slices"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

type FieldType string

const (
	FieldInt       FieldType = "int"
	FieldString    FieldType = "string"
	FieldTimestamp FieldType = "timestamp"
	FieldBoolean   FieldType = "boolean"
	FieldSet       FieldType = "set"
)

type SchemaField struct {
	Name    string
	Type    FieldType
	Indexed bool
}

// ChatSchema declares the persisted shape of a chat. Notice count, message order
// and the loaded messages are transient and not part of it.
var ChatSchema = []SchemaField{
	{Name: "id", Type: FieldString, Indexed: true},
	{Name: "gid", Type: FieldString, Indexed: true},
	{Name: "status", Type: FieldInt, Indexed: true},
	{Name: "user", Type: FieldInt, Indexed: true},
	{Name: "type", Type: FieldString, Indexed: true},
	{Name: "name", Type: FieldString, Indexed: true},
	{Name: "createdDate", Type: FieldTimestamp, Indexed: true},
	{Name: "createdBy", Type: FieldString, Indexed: true},
	{Name: "editedDate", Type: FieldTimestamp},
	{Name: "lastActiveTime", Type: FieldTimestamp, Indexed: true},
	{Name: "star", Type: FieldBoolean, Indexed: true},
	{Name: "mute", Type: FieldBoolean, Indexed: true},
	{Name: "public", Type: FieldBoolean, Indexed: true},
	{Name: "hide", Type: FieldBoolean, Indexed: true},
	{Name: "admins", Type: FieldSet},
	{Name: "members", Type: FieldSet},
	{Name: "committers", Type: FieldString},
}

// ChatRecord is the stored form of a Chat.
type ChatRecord struct {
	ID             string
	GID            string
	Status         ChatStatus
	User           MemberID
	Type           ChatType
	Name           string
	CreatedDate    time.Time
	CreatedBy      string
	EditedDate     time.Time
	LastActiveTime time.Time
	Star           bool
	Mute           bool
	Public         bool
	Hidden         bool
	Admins         []string
	Members        []MemberID
	Committers     string
}

// Record snapshots the persisted fields. Sets are returned sorted.
func (c *Chat) Record() ChatRecord {
	admins := c.admins.ToSlice()
	slices.Sort(admins)
	members := c.members.ToSlice()
	slices.Sort(members)

	return ChatRecord{
		ID:             c.id,
		GID:            c.gid,
		Status:         c.status.value,
		User:           c.User,
		Type:           c.kind,
		Name:           c.name,
		CreatedDate:    c.CreatedDate,
		CreatedBy:      c.CreatedBy,
		EditedDate:     c.EditedDate,
		LastActiveTime: c.lastActiveTime,
		Star:           c.Star,
		Mute:           c.Mute,
		Public:         c.Public,
		Hidden:         c.Hidden,
		Admins:         admins,
		Members:        members,
		Committers:     c.committers,
	}
}

// ChatFromRecord rebuilds a chat from its stored form without notifying anyone.
func ChatFromRecord(r ChatRecord) *Chat {
	c := newChat()
	c.id = r.ID
	c.gid = r.GID
	c.status.value = r.Status
	if !r.Status.Valid() {
		c.status.value = StatusLocal
	}
	c.User = r.User
	c.kind = r.Type
	c.name = r.Name
	c.CreatedDate = r.CreatedDate
	c.CreatedBy = r.CreatedBy
	c.EditedDate = r.EditedDate
	c.lastActiveTime = r.LastActiveTime
	c.Star = r.Star
	c.Mute = r.Mute
	c.Public = r.Public
	c.Hidden = r.Hidden
	c.admins = mapset.NewThreadUnsafeSet(r.Admins...)
	c.members = mapset.NewThreadUnsafeSet(r.Members...)
	c.committers = r.Committers
	return c
}

// Fields returns the record keyed by schema field name.
func (r ChatRecord) Fields() map[string]any {
	return map[string]any{
		"id":             r.ID,
		"gid":            r.GID,
		"status":         int(r.Status),
		"user":           int64(r.User),
		"type":           string(r.Type),
		"name":           r.Name,
		"createdDate":    r.CreatedDate,
		"createdBy":      r.CreatedBy,
		"editedDate":     r.EditedDate,
		"lastActiveTime": r.LastActiveTime,
		"star":           r.Star,
		"mute":           r.Mute,
		"public":         r.Public,
		"hide":           r.Hidden,
		"admins":         r.Admins,
		"members":        r.Members,
		"committers":     r.Committers,
	}
}
