package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	require.NotNil(t, ingestMessagesTotal)
	require.NotNil(t, assetFallbackTotal)
	require.NotNil(t, catalogWritesTotal)
	require.NotNil(t, httpRequestsTotal)
}

func TestObserveIngest(t *testing.T) {
	Init()
	before := testutil.ToFloat64(ingestMessagesTotal.WithLabelValues("not_processed", "no_photo"))
	ObserveIngest("not_processed", "no_photo")
	ObserveIngest("not_processed", "no_photo")
	require.InDelta(t, before+2, testutil.ToFloat64(ingestMessagesTotal.WithLabelValues("not_processed", "no_photo")), 0.001)
}

func TestObserveAssetRetrievalCountsFallbacks(t *testing.T) {
	Init()
	before := testutil.ToFloat64(assetFallbackTotal)

	ObserveAssetRetrieval(150*time.Millisecond, nil)
	require.InDelta(t, before, testutil.ToFloat64(assetFallbackTotal), 0.001)

	ObserveAssetRetrieval(2*time.Second, errors.New("getFile failed"))
	require.InDelta(t, before+1, testutil.ToFloat64(assetFallbackTotal), 0.001)
	require.Positive(t, testutil.CollectAndCount(assetRetrievalSeconds))
}

func TestObserveCatalogWriteAndLead(t *testing.T) {
	Init()
	beforeWrite := testutil.ToFloat64(catalogWritesTotal.WithLabelValues("error"))
	beforeLead := testutil.ToFloat64(leadsTotal.WithLabelValues("ok"))

	ObserveCatalogWrite("error")
	ObserveLead("ok")

	require.InDelta(t, beforeWrite+1, testutil.ToFloat64(catalogWritesTotal.WithLabelValues("error")), 0.001)
	require.InDelta(t, beforeLead+1, testutil.ToFloat64(leadsTotal.WithLabelValues("ok")), 0.001)
}
