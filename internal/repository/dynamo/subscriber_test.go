package dynamo

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/ignite/signup-capture/internal/domain"
	"github.com/ignite/signup-capture/internal/service/subscription"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTable is an in-memory stand-in for a DynamoDB table. Scan returns
// pageSize items per call to exercise pagination.
type fakeTable struct {
	mu       sync.Mutex
	items    map[string]map[string]types.AttributeValue
	pageSize int
	scans    int
	err      error
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: make(map[string]map[string]types.AttributeValue), pageSize: 2}
}

func pkOf(m map[string]types.AttributeValue) string {
	return m["PK"].(*types.AttributeValueMemberS).Value
}

func (f *fakeTable) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.items[pkOf(in.Key)]}, nil
}

func (f *fakeTable) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	pk := pkOf(in.Item)
	if aws.ToString(in.ConditionExpression) == "attribute_not_exists(PK)" {
		if _, exists := f.items[pk]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
	}
	f.items[pk] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.scans++

	keys := make([]string, 0, len(f.items))
	for k := range f.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if in.ExclusiveStartKey != nil {
		last := pkOf(in.ExclusiveStartKey)
		start = sort.SearchStrings(keys, last) + 1
	}
	end := start + f.pageSize
	if end > len(keys) {
		end = len(keys)
	}

	out := &dynamodb.ScanOutput{}
	for _, k := range keys[start:end] {
		out.Items = append(out.Items, f.items[k])
	}
	if end < len(keys) {
		out.LastEvaluatedKey = key(keys[end-1][len(pkPrefix):])
	}
	return out, nil
}

func (f *fakeTable) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableName: in.TableName}}, nil
}

func TestInsertAndFind(t *testing.T) {
	repo := NewSubscriberRepo(newFakeTable(), "signups")
	ctx := context.Background()

	s := &domain.Subscriber{Name: "Ada", Email: "ada@example.com", LandingPageURL: "https://lp.example.com"}
	require.NoError(t, repo.Insert(ctx, s))
	assert.NotEmpty(t, s.ID)
	assert.False(t, s.CreatedAt.IsZero())

	got, err := repo.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, "https://lp.example.com", got.LandingPageURL)
	assert.True(t, s.CreatedAt.Equal(got.CreatedAt))
}

func TestFindByEmail_Missing(t *testing.T) {
	repo := NewSubscriberRepo(newFakeTable(), "signups")

	_, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, subscription.ErrNotFound)
}

func TestInsert_ConditionalFailureIsDuplicate(t *testing.T) {
	repo := NewSubscriberRepo(newFakeTable(), "signups")
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, &domain.Subscriber{Name: "A", Email: "a@example.com"}))
	err := repo.Insert(ctx, &domain.Subscriber{Name: "A again", Email: "a@example.com"})
	assert.ErrorIs(t, err, subscription.ErrDuplicate)

	got, err := repo.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)
}

func TestListAll_PaginatesAndSortsNewestFirst(t *testing.T) {
	table := newFakeTable()
	repo := NewSubscriberRepo(table, "signups")
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	emails := []string{"c@example.com", "a@example.com", "e@example.com", "b@example.com", "d@example.com"}
	for i, email := range emails {
		require.NoError(t, repo.Insert(ctx, &domain.Subscriber{
			Name: "N", Email: email, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	subs, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, subs, len(emails))
	assert.Equal(t, 3, table.scans)
	for i := range subs {
		assert.Equal(t, emails[len(emails)-1-i], subs[i].Email)
	}
}

func TestListAll_EmptyIsNonNil(t *testing.T) {
	repo := NewSubscriberRepo(newFakeTable(), "signups")

	subs, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, subs)
	assert.Empty(t, subs)
}

func TestBackendErrors(t *testing.T) {
	table := newFakeTable()
	table.err = errors.New("RequestTimeout")
	repo := NewSubscriberRepo(table, "signups")
	ctx := context.Background()

	_, err := repo.FindByEmail(ctx, "a@example.com")
	assert.ErrorContains(t, err, "RequestTimeout")
	assert.NotErrorIs(t, err, subscription.ErrNotFound)

	err = repo.Insert(ctx, &domain.Subscriber{Name: "A", Email: "a@example.com"})
	assert.ErrorContains(t, err, "RequestTimeout")
	assert.NotErrorIs(t, err, subscription.ErrDuplicate)

	_, err = repo.ListAll(ctx)
	assert.ErrorContains(t, err, "RequestTimeout")

	assert.ErrorContains(t, repo.Ping(ctx), "signups")
}
