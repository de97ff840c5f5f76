package superset

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/ashureev/dashgenie/internal/domain"
)

const (
	datasetPageSize    = 100
	columnFetchWorkers = 4
)

type datasetListResponse struct {
	Count  int `json:"count"`
	Result []struct {
		ID        int    `json:"id"`
		TableName string `json:"table_name"`
	} `json:"result"`
}

type datasetResponse struct {
	Result struct {
		Columns []struct {
			ColumnName string `json:"column_name"`
		} `json:"columns"`
	} `json:"result"`
}

type datasetRef struct {
	id   int
	name string
}

// FetchCatalog lists every dataset visible to the admin account together with
// its column names. Datasets whose detail cannot be read are skipped.
func (c *Client) FetchCatalog(ctx context.Context) (domain.Catalog, error) {
	refs, err := c.listDatasets(ctx)
	if err != nil {
		return nil, err
	}

	columns := make([][]string, len(refs))
	ok := make([]bool, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(columnFetchWorkers)
	for i, ref := range refs {
		g.Go(func() error {
			var detail datasetResponse
			err := c.do(gctx, http.MethodGet, fmt.Sprintf("/api/v1/dataset/%d", ref.id), nil, nil, &detail)
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				c.logger.Warn("Skipping dataset", "dataset_id", ref.id, "status", statusErr.Status)
				return nil
			}
			if err != nil {
				return fmt.Errorf("dataset %d: %w", ref.id, err)
			}
			cols := make([]string, 0, len(detail.Result.Columns))
			for _, col := range detail.Result.Columns {
				cols = append(cols, col.ColumnName)
			}
			columns[i] = cols
			ok[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	catalog := make(domain.Catalog, len(refs))
	for i, ref := range refs {
		if ok[i] {
			catalog[ref.name] = domain.NewDatasetInfo(ref.id, columns[i])
		}
	}
	return catalog, nil
}

func (c *Client) listDatasets(ctx context.Context) ([]datasetRef, error) {
	var refs []datasetRef
	for page := 0; ; page++ {
		var list datasetListResponse
		q := queryParam(map[string]int{"page": page, "page_size": datasetPageSize})
		if err := c.do(ctx, http.MethodGet, "/api/v1/dataset/", q, nil, &list); err != nil {
			return nil, fmt.Errorf("listing datasets: %w", err)
		}
		for _, ds := range list.Result {
			refs = append(refs, datasetRef{id: ds.ID, name: ds.TableName})
		}
		if len(list.Result) < datasetPageSize || (list.Count > 0 && len(refs) >= list.Count) {
			return refs, nil
		}
	}
}
