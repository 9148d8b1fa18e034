// Package dynamo stores subscribers in a single DynamoDB table keyed by email.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/ignite/signup-capture/internal/domain"
	"github.com/ignite/signup-capture/internal/service/subscription"
)

const (
	pkPrefix   = "SUBSCRIBER#"
	profileSK  = "PROFILE"
	scanFilter = "SK = :sk"
)

// API is the subset of the DynamoDB client the repository uses.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// item is the stored shape: the subscriber plus its table keys.
type item struct {
	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
	domain.Subscriber
}

// SubscriberRepo implements subscription.Repository against DynamoDB.
type SubscriberRepo struct {
	api   API
	table string
	now   func() time.Time
}

// NewSubscriberRepo creates a DynamoDB-backed subscriber repository.
func NewSubscriberRepo(api API, table string) *SubscriberRepo {
	return &SubscriberRepo{api: api, table: table, now: time.Now}
}

func key(email string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pkPrefix + email},
		"SK": &types.AttributeValueMemberS{Value: profileSK},
	}
}

func (r *SubscriberRepo) FindByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            key(email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting subscriber from DynamoDB: %w", err)
	}
	if out.Item == nil {
		return nil, subscription.ErrNotFound
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshaling subscriber: %w", err)
	}
	return &it.Subscriber, nil
}

func (r *SubscriberRepo) Insert(ctx context.Context, s *domain.Subscriber) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now().UTC()
	}

	av, err := attributevalue.MarshalMap(item{PK: pkPrefix + s.Email, SK: profileSK, Subscriber: *s})
	if err != nil {
		return fmt.Errorf("marshaling subscriber: %w", err)
	}

	_, err = r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return subscription.ErrDuplicate
		}
		return fmt.Errorf("putting subscriber to DynamoDB: %w", err)
	}
	return nil
}

func (r *SubscriberRepo) ListAll(ctx context.Context) ([]domain.Subscriber, error) {
	p := dynamodb.NewScanPaginator(r.api, &dynamodb.ScanInput{
		TableName:        aws.String(r.table),
		FilterExpression: aws.String(scanFilter),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sk": &types.AttributeValueMemberS{Value: profileSK},
		},
	})

	out := []domain.Subscriber{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scanning subscribers: %w", err)
		}
		var items []item
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshaling subscribers: %w", err)
		}
		for _, it := range items {
			out = append(out, it.Subscriber)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *SubscriberRepo) Ping(ctx context.Context) error {
	_, err := r.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.table)})
	if err != nil {
		return fmt.Errorf("describing table %s: %w", r.table, err)
	}
	return nil
}
