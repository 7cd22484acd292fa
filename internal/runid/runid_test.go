package runid_test

import (
	"testing"
	"time"

	"github.com/outreachly/costgate/internal/runid"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	at := time.Date(2025, 9, 24, 0, 15, 30, 0, time.UTC)
	require.Equal(t, "250924-001530", runid.Generate(at))
}

func TestGenerate_NonUTCInput(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	at := time.Date(2025, 9, 24, 3, 15, 30, 0, loc)
	require.Equal(t, "250924-001530", runid.Generate(at))
}

func TestAddClientSuffix_Append(t *testing.T) {
	got, err := runid.AddClientSuffix("250924-001530", "acme")
	require.NoError(t, err)
	require.Equal(t, "250924-001530-acme", got)
}

func TestAddClientSuffix_Idempotent(t *testing.T) {
	once, err := runid.AddClientSuffix("250924-001530", "Guy-Wilson")
	require.NoError(t, err)
	twice, err := runid.AddClientSuffix(once, "Guy-Wilson")
	require.NoError(t, err)
	require.Equal(t, once, twice)
}

func TestAddClientSuffix_ReplacesOtherClient(t *testing.T) {
	got, err := runid.AddClientSuffix("250924-001530-acme", "globex")
	require.NoError(t, err)
	require.Equal(t, "250924-001530-globex", got)
}

func TestAddClientSuffix_CollapsesDoubleSuffix(t *testing.T) {
	got, err := runid.AddClientSuffix("250924-001530-Guy-Wilson-Guy-Wilson", "Guy-Wilson")
	require.NoError(t, err)
	require.Equal(t, "250924-001530-Guy-Wilson", got)
}

func TestAddClientSuffix_CollapsesTripleSuffix(t *testing.T) {
	got, err := runid.AddClientSuffix("250924-001530-x-x-x", "x")
	require.NoError(t, err)
	require.Equal(t, "250924-001530-x", got)
}

func TestAddClientSuffix_ExternalID(t *testing.T) {
	got, err := runid.AddClientSuffix("batch-import-77", "acme")
	require.NoError(t, err)
	require.Equal(t, "batch-import-77-acme", got)
}

func TestAddClientSuffix_EmptyArguments(t *testing.T) {
	_, err := runid.AddClientSuffix("", "acme")
	require.ErrorIs(t, err, runid.ErrEmptyRunID)

	_, err = runid.AddClientSuffix("250924-001530", "")
	require.ErrorIs(t, err, runid.ErrEmptyClientID)

	_, err = runid.AddClientSuffix("250924-001530", "   ")
	require.ErrorIs(t, err, runid.ErrEmptyClientID)
}

func TestStripClientSuffix(t *testing.T) {
	require.Equal(t, "250924-001530", runid.StripClientSuffix("250924-001530-acme"))
	require.Equal(t, "250924-001530", runid.StripClientSuffix("250924-001530-Guy-Wilson"))
	require.Equal(t, "250924-001530", runid.StripClientSuffix("250924-001530"))
	// External IDs pass through; the suffix boundary is unknown.
	require.Equal(t, "batch-import-77", runid.StripClientSuffix("batch-import-77"))
}

func TestStripClientSuffix_RoundTrip(t *testing.T) {
	base := runid.Generate(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	suffixed, err := runid.AddClientSuffix(base, "Guy-Wilson")
	require.NoError(t, err)
	require.Equal(t, base, runid.StripClientSuffix(suffixed))
}

func TestDetectFormat(t *testing.T) {
	require.Nil(t, runid.DetectFormat(""))

	info := runid.DetectFormat("250924-001530")
	require.NotNil(t, info)
	require.Equal(t, runid.FormatTimestamp, info.Format)
	require.Equal(t, "250924-001530", info.BaseRunID)
	require.Empty(t, info.ClientID)

	info = runid.DetectFormat("250924-001530-Guy-Wilson")
	require.NotNil(t, info)
	require.Equal(t, runid.FormatTimestampSuffixed, info.Format)
	require.Equal(t, "250924-001530", info.BaseRunID)
	require.Equal(t, "Guy-Wilson", info.ClientID)

	info = runid.DetectFormat("lead-import-queue-4")
	require.NotNil(t, info)
	require.Equal(t, runid.FormatExternal, info.Format)
	require.Equal(t, "lead-import-queue-4", info.BaseRunID)
}

func TestDetectFormat_RejectsNonTimestampDigits(t *testing.T) {
	// Right shape, impossible month: treated as external.
	info := runid.DetectFormat("259924-001530")
	require.NotNil(t, info)
	require.Equal(t, runid.FormatExternal, info.Format)
}
