package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

// Context is the execution handle for a single claimed job run. It carries
// the request context, the DB handle, and the in-memory job_run row, and
// offers uniform payload decoding so handlers never parse JSON themselves.
type Context struct {
	Ctx     context.Context
	DB      *gorm.DB
	Job     *types.JobRun
	payload map[string]any
}

func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun) *Context {
	c := &Context{Ctx: ctx, DB: db, Job: job}
	_ = c.decodePayload()
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil || len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

// Payload returns the decoded payload map. Never nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

// DecodeInto unmarshals the raw payload JSON into a typed per-queue payload
// struct.
func (c *Context) DecodeInto(v any) error {
	if c.Job == nil || len(c.Job.Payload) == 0 {
		return fmt.Errorf("empty job payload")
	}
	return json.Unmarshal(c.Job.Payload, v)
}

// PayloadString reads a payload field by key as a string.
func (c *Context) PayloadString(key string) (string, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// PayloadUUID reads a payload field by key and parses it as a UUID.
func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	s, ok := c.PayloadString(key)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
