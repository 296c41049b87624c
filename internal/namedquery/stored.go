package namedquery

import (
	"fmt"
	"net/url"
	"strings"

	"orchestrator/internal/domain"
)

// Channel identifies which derived-artifact pipeline a stored query feeds.
type Channel string

const (
	ChannelPDF Channel = "pdf"
	ChannelZIP Channel = "zip"
)

// ContentType returns the media type of the channel's artifact.
func (c Channel) ContentType() string {
	if c == ChannelPDF {
		return "application/pdf"
	}
	return "application/zip"
}

// StoredParsedQuery extends ParsedQuery with the storage keys used by the
// control-file build cache. Keys are deterministic over (customer, channel,
// query name, args, object name): a content change must produce a new key.
type StoredParsedQuery struct {
	ParsedQuery
	Channel               Channel
	StorageKey            string
	ControlFileStorageKey string
}

// ParseStored binds a template for the pdf/zip channels and derives the
// artifact and control-file storage keys.
func ParseStored(nq *domain.NamedQuery, customer int, args []string, overrides url.Values, channel Channel) (*StoredParsedQuery, error) {
	parsed, err := Parse(nq, customer, args, overrides)
	if err != nil {
		return nil, err
	}
	stored := &StoredParsedQuery{ParsedQuery: *parsed, Channel: channel}
	if stored.ObjectName == "" {
		stored.ObjectName = fmt.Sprintf("%s.%s", nq.Name, channel)
	}
	stored.StorageKey = storageKey(customer, channel, nq.Name, stored.Args, stored.ObjectName)
	stored.ControlFileStorageKey = stored.StorageKey + ".json"
	return stored, nil
}

func storageKey(customer int, channel Channel, queryName string, args []string, objectName string) string {
	parts := []string{fmt.Sprintf("%d", customer), string(channel), queryName}
	if len(args) > 0 {
		parts = append(parts, strings.Join(args, "/"))
	}
	parts = append(parts, objectName)
	return strings.Join(parts, "/")
}
