// Package aztables stores records in one Azure Storage table: the
// collection is the PartitionKey and the record id the RowKey.
package aztables

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"github.com/julianstephens/tenken/internal/constants"
	"github.com/julianstephens/tenken/internal/logger"
	"github.com/julianstephens/tenken/internal/recordstore"
)

// tableClient is the subset of *aztables.Client the store uses.
type tableClient interface {
	NewListEntitiesPager(opts *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
	GetEntity(ctx context.Context, pk, rk string, opts *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpsertEntity(ctx context.Context, entity []byte, opts *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error)
	DeleteEntity(ctx context.Context, pk, rk string, opts *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
	SubmitTransaction(ctx context.Context, actions []aztables.TransactionAction, opts *aztables.SubmitTransactionOptions) (aztables.TransactionResponse, error)
}

type Store struct {
	client tableClient
	table  string
}

var _ recordstore.Store = (*Store)(nil)

// clientOptions disables SDK retries: a failed call surfaces to the caller
// at once, and the operator retries the save.
func clientOptions() aztables.ClientOptions {
	return aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries: -1,
				TryTimeout: time.Minute,
			},
		},
	}
}

// Open connects with an account connection string and creates the table if
// it does not exist yet.
func Open(ctx context.Context, connStr, table string) (*Store, error) {
	opts := clientOptions()
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, fmt.Errorf("invalid azure tables connection string: %w", err)
	}

	client := svc.NewClient(table)
	if _, err := client.CreateTable(ctx, nil); err != nil {
		var respErr *azcore.ResponseError
		if !(errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)) {
			return nil, fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return &Store{client: client, table: table}, nil
}

func (s *Store) List(ctx context.Context, collection string) ([]recordstore.Record, error) {
	filter := "PartitionKey eq '" + strings.ReplaceAll(collection, "'", "''") + "'"
	pager := s.client.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})

	records := []recordstore.Record{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			id, fields, err := decodeEntity(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", collection, err)
			}
			records = append(records, recordstore.Record{ID: id, Fields: fields})
		}
	}
	recordstore.SortRecords(records)
	return records, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (recordstore.Document, error) {
	resp, err := s.client.GetEntity(ctx, collection, id, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, recordstore.ErrNotFound
		}
		return nil, err
	}
	_, fields, err := decodeEntity(resp.Value)
	return fields, err
}

func (s *Store) Set(ctx context.Context, collection, id string, fields recordstore.Document, merge bool) error {
	data, err := encodeEntity(collection, id, fields)
	if err != nil {
		return err
	}
	mode := aztables.UpdateModeReplace
	if merge {
		mode = aztables.UpdateModeMerge
	}
	_, err = s.client.UpsertEntity(ctx, data, &aztables.UpsertEntityOptions{UpdateMode: mode})
	return err
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.DeleteEntity(ctx, collection, id, nil)
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// Batch submits one entity-group transaction per partition, in chunks of
// at most 100 actions. Each transaction is atomic; the batch as a whole is
// not, so a failure after an earlier transaction committed is reported as
// a *recordstore.PartialBatchError.
func (s *Store) Batch(ctx context.Context, writes []recordstore.Write) error {
	if err := recordstore.ValidateBatch(writes); err != nil {
		return err
	}

	groups, err := s.plan(ctx, writes)
	if err != nil {
		return err
	}

	var committed []string
	for i, g := range groups {
		if _, err := s.client.SubmitTransaction(ctx, g.actions, nil); err != nil {
			if len(committed) == 0 {
				return err
			}
			return &recordstore.PartialBatchError{
				Committed: dedupe(committed),
				Failed:    pendingPartitions(groups[i:]),
				Err:       err,
			}
		}
		committed = append(committed, g.partition)
	}

	logger.Debug("azure tables batch committed", "table", s.table, "writes", len(writes), "transactions", len(groups))
	return nil
}

type group struct {
	partition string
	actions   []aztables.TransactionAction
}

// plan encodes every write before anything is submitted so an unencodable
// batch fails untouched.
func (s *Store) plan(ctx context.Context, writes []recordstore.Write) ([]group, error) {
	var order []string
	byPartition := make(map[string][]recordstore.Write)
	for _, w := range collapse(writes) {
		if _, ok := byPartition[w.Collection]; !ok {
			order = append(order, w.Collection)
		}
		byPartition[w.Collection] = append(byPartition[w.Collection], w)
	}

	var groups []group
	for _, partition := range order {
		var actions []aztables.TransactionAction
		for _, w := range byPartition[partition] {
			action, keep, err := s.action(ctx, w)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", w, err)
			}
			if keep {
				actions = append(actions, action)
			}
		}
		for start := 0; start < len(actions); start += constants.AzureBatchLimit {
			end := min(start+constants.AzureBatchLimit, len(actions))
			groups = append(groups, group{partition: partition, actions: actions[start:end]})
		}
	}
	return groups, nil
}

// action maps a write to a transaction action. Deletes of absent entities
// are dropped since they would fail the whole transaction.
func (s *Store) action(ctx context.Context, w recordstore.Write) (aztables.TransactionAction, bool, error) {
	if w.Delete {
		if _, err := s.client.GetEntity(ctx, w.Collection, w.ID, nil); err != nil {
			if isNotFound(err) {
				return aztables.TransactionAction{}, false, nil
			}
			return aztables.TransactionAction{}, false, err
		}
		data, err := encodeEntity(w.Collection, w.ID, nil)
		if err != nil {
			return aztables.TransactionAction{}, false, err
		}
		return aztables.TransactionAction{ActionType: aztables.TransactionTypeDelete, Entity: data}, true, nil
	}

	data, err := encodeEntity(w.Collection, w.ID, w.Fields)
	if err != nil {
		return aztables.TransactionAction{}, false, err
	}
	actionType := aztables.TransactionTypeInsertReplace
	if w.Merge {
		actionType = aztables.TransactionTypeInsertMerge
	}
	return aztables.TransactionAction{ActionType: actionType, Entity: data}, true, nil
}

// collapse folds repeated writes to the same record into one, since a
// transaction may touch each entity only once.
func collapse(writes []recordstore.Write) []recordstore.Write {
	index := make(map[string]int, len(writes))
	var out []recordstore.Write
	for _, w := range writes {
		key := w.Collection + "\x00" + w.ID
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, w)
			continue
		}
		prev := out[i]
		switch {
		case w.Delete, !w.Merge:
			out[i] = w
		case prev.Delete:
			out[i] = recordstore.Set(w.Collection, w.ID, w.Fields)
		default:
			out[i] = recordstore.Write{
				Collection: w.Collection,
				ID:         w.ID,
				Fields:     recordstore.Merge(prev.Fields, w.Fields),
				Merge:      prev.Merge,
			}
		}
	}
	return out
}

func encodeEntity(collection, id string, fields recordstore.Document) ([]byte, error) {
	entity := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		entity[k] = v
	}
	entity["PartitionKey"] = collection
	entity["RowKey"] = id

	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entity: %w", err)
	}
	return data, nil
}

// decodeEntity strips the system properties and OData annotations from a
// stored entity.
func decodeEntity(raw []byte) (string, recordstore.Document, error) {
	var entity map[string]any
	if err := json.Unmarshal(raw, &entity); err != nil {
		return "", nil, fmt.Errorf("failed to decode entity: %w", err)
	}

	id, _ := entity["RowKey"].(string)
	fields := make(recordstore.Document, len(entity))
	for k, v := range entity {
		switch {
		case k == "PartitionKey", k == "RowKey", k == "Timestamp":
		case strings.HasPrefix(k, "odata."), strings.Contains(k, "@odata."):
		default:
			fields[k] = v
		}
	}
	return id, fields, nil
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

func pendingPartitions(groups []group) []string {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.partition)
	}
	return dedupe(names)
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := names[:0:0]
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func (s *Store) Close() error {
	return nil
}
