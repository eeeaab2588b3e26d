package bigquery

import (
	"context"
	"testing"

	"github.com/brewcart/brewcart-backend/pkg/config"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	gcpCfg := config.GCPConfig{ProjectID: " brewcart-prod "}
	got, err := resolve(gcpCfg, config.BigQueryConfig{Dataset: "analytics", OrderEventsTable: " order_events "})
	require.NoError(t, err)
	require.Equal(t, target{project: "brewcart-prod", dataset: "analytics", table: "order_events"}, got)

	cases := []struct {
		name string
		gcp  config.GCPConfig
		bq   config.BigQueryConfig
		want error
	}{
		{"project", config.GCPConfig{}, config.BigQueryConfig{Dataset: "d", OrderEventsTable: "t"}, errProjectIDRequired},
		{"dataset", gcpCfg, config.BigQueryConfig{OrderEventsTable: "t"}, errDatasetRequired},
		{"table", gcpCfg, config.BigQueryConfig{Dataset: "d"}, errTableNameRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := resolve(tc.gcp, tc.bq)
			require.ErrorIs(t, err, tc.want)

			_, err = NewClient(context.Background(), tc.gcp, tc.bq, nil)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestNilClient(t *testing.T) {
	var c *Client
	ctx := context.Background()
	require.ErrorIs(t, c.InsertRows(ctx, "t", []any{1}), errClientNotInitialized)
	require.ErrorIs(t, c.Ping(ctx), errClientNotInitialized)
	require.Equal(t, "", c.OrderEventsTable())
	require.NoError(t, c.Close())
}
