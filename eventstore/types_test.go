// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

package eventstore_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"go.evstore.dev/engine/eventstore"
)

func TestObjectDocumentJSONRoundTrip(t *testing.T) {
	hash := "h1"
	prev := "h0"
	schema := "v2"
	doc := eventstore.ObjectDocument{
		ObjectName: "users",
		ObjectID:   "u1",
		Active: eventstore.StreamInformation{
			StreamIdentifier:     "stream-1",
			CurrentStreamVersion: 3,
			StreamChunks: []eventstore.StreamChunk{
				{ChunkID: "000001", FirstEventVersion: 0, LastEventVersion: 99},
			},
			RollbackHistory: []eventstore.RollbackRecord{
				{FromVersion: 1, ToVersion: 1, EventsRemoved: 1, OriginalError: "boom"},
			},
		},
		SchemaVersion: &schema,
		Hash:          &hash,
		PrevHash:      &prev,
	}

	data, err := json.Marshal(&doc)
	require.NoError(t, err)

	var roundTripped eventstore.ObjectDocument
	require.NoError(t, json.Unmarshal(data, &roundTripped))
	require.Equal(t, doc, roundTripped)
}

func TestHashOrWildcardDefaultsToSentinel(t *testing.T) {
	doc := eventstore.ObjectDocument{}
	require.Equal(t, eventstore.WildcardHash, doc.HashOrWildcard())
	require.Equal(t, eventstore.WildcardHash, doc.PrevHashOrWildcard())

	h := "real-hash"
	doc.Hash = &h
	require.Equal(t, "real-hash", doc.HashOrWildcard())
}

func TestStreamInformationEmptyAndBroken(t *testing.T) {
	fresh := eventstore.StreamInformation{CurrentStreamVersion: -1}
	require.True(t, fresh.IsEmpty())
	require.False(t, fresh.IsBroken())

	committed := eventstore.StreamInformation{CurrentStreamVersion: 0}
	require.False(t, committed.IsEmpty())

	broken := eventstore.StreamInformation{BrokenStreamInfo: &eventstore.BrokenStreamInfo{}}
	require.True(t, broken.IsBroken())
}

func TestStreamDataDocumentIsClosed(t *testing.T) {
	doc := eventstore.StreamDataDocument{
		Events: []eventstore.Event{
			userCreated("A"),
			{EventType: eventstore.ClosedEventType},
		},
	}
	require.True(t, doc.IsClosed())
	require.Equal(t, eventstore.ClosedEventType, doc.LastEvent().EventType)

	open := eventstore.StreamDataDocument{Events: []eventstore.Event{userCreated("A")}}
	require.False(t, open.IsClosed())

	empty := eventstore.StreamDataDocument{}
	require.Nil(t, empty.LastEvent())
	require.False(t, empty.IsClosed())
}

func TestTagEntryAddRemoveIdempotent(t *testing.T) {
	entry := eventstore.NewTagEntry("vip")
	require.True(t, entry.Add("u1"))
	require.False(t, entry.Add("u1"))
	require.False(t, entry.Empty())

	require.True(t, entry.Remove("u1"))
	require.False(t, entry.Remove("u1"))
	require.True(t, entry.Empty())
}

func TestTagEntryJSONRoundTripSortsIDs(t *testing.T) {
	entry := eventstore.NewTagEntry("vip")
	entry.Add("u3")
	entry.Add("u1")
	entry.Add("u2")

	data, err := json.Marshal(entry)
	require.NoError(t, err)
	require.JSONEq(t, `{"tag":"vip","objectIds":["u1","u2","u3"]}`, string(data))

	var roundTripped eventstore.TagEntry
	require.NoError(t, json.Unmarshal(data, &roundTripped))
	require.Equal(t, entry.Tag, roundTripped.Tag)
	require.Equal(t, entry.ObjectIDs, roundTripped.ObjectIDs)
}
