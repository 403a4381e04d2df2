// Copyright (C) 2026 Evstore Engine contributors.
// See LICENSE for copying information.

package eventstore_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go.evstore.dev/engine/eventstore"
)

func TestNextHashIsDeterministic(t *testing.T) {
	events := []eventstore.Event{userCreated("A"), userRenamed("B")}

	h1 := eventstore.NextHash(eventstore.WildcardHash, events)
	h2 := eventstore.NextHash(eventstore.WildcardHash, events)
	require.Equal(t, h1, h2)
	require.NotEmpty(t, h1)
}

func TestNextHashDependsOnPreviousHash(t *testing.T) {
	events := []eventstore.Event{userCreated("A")}

	h1 := eventstore.NextHash(eventstore.WildcardHash, events)
	h2 := eventstore.NextHash("some-other-prior-hash", events)
	require.NotEqual(t, h1, h2)
}

func TestNextHashDependsOnEventContent(t *testing.T) {
	a := eventstore.NextHash(eventstore.WildcardHash, []eventstore.Event{userCreated("A")})
	b := eventstore.NextHash(eventstore.WildcardHash, []eventstore.Event{userCreated("B")})
	require.NotEqual(t, a, b)
}

func TestCanonicalizeEventsOrdersMetadataDeterministically(t *testing.T) {
	e1 := eventstore.Event{
		EventVersion: 0,
		EventType:    "X",
		Timestamp:    time.Unix(0, 0).UTC(),
		Metadata:     map[string]string{"b": "2", "a": "1"},
	}
	e2 := e1

	require.Equal(t, eventstore.CanonicalizeEvents([]eventstore.Event{e1}), eventstore.CanonicalizeEvents([]eventstore.Event{e2}))
}

func TestHashChainMatchesWildcardShortCircuits(t *testing.T) {
	require.True(t, eventstore.HashChainMatches(eventstore.WildcardHash, "anything"))
	require.True(t, eventstore.HashChainMatches("anything", eventstore.WildcardHash))
	require.True(t, eventstore.HashChainMatches(eventstore.WildcardHash, eventstore.WildcardHash))
}

func TestHashChainMatchesRequiresEquality(t *testing.T) {
	require.True(t, eventstore.HashChainMatches("abc", "abc"))
	require.False(t, eventstore.HashChainMatches("abc", "def"))
}
