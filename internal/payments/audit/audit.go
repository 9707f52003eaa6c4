// Package audit keeps an append-only journal of gateway calls.
package audit

import (
	"context"
	"fmt"
	"time"

	"fm_servicios_backend/platform/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
)

//go:generate mockgen -destination=mocks/journal_mock.go -package=mocks fm_servicios_backend/internal/payments/audit Journal

// Operations recorded in the journal.
const (
	OpCreate = "create"
	OpCommit = "commit"
)

// Entry is one gateway attempt.
type Entry struct {
	ID           string    `dynamodbav:"id"`
	QuoteID      int64     `dynamodbav:"quote_id"`
	Provider     string    `dynamodbav:"provider"`
	Operation    string    `dynamodbav:"operation"`
	BuyOrder     string    `dynamodbav:"buy_order,omitempty"`
	Token        string    `dynamodbav:"token,omitempty"`
	Amount       int64     `dynamodbav:"amount,omitempty"`
	Status       string    `dynamodbav:"status,omitempty"`
	ResponseCode *int      `dynamodbav:"response_code,omitempty"`
	Error        string    `dynamodbav:"error,omitempty"`
	At           time.Time `dynamodbav:"at"`
}

// Journal appends entries. Callers log failures and carry on.
type Journal interface {
	Record(ctx context.Context, e Entry) error
}

// Noop discards entries.
type Noop struct{}

func (Noop) Record(context.Context, Entry) error { return nil }

// putter is the slice of the DynamoDB client the journal uses.
type putter interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoJournal writes entries to a DynamoDB table keyed by id.
type DynamoJournal struct {
	ddb   putter
	table string
}

func NewDynamoJournal(ddb putter, table string) *DynamoJournal {
	return &DynamoJournal{ddb: ddb, table: table}
}

func (j *DynamoJournal) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	_, err = j.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(j.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": "id",
		},
	})
	if err != nil {
		return fmt.Errorf("put audit entry: %w", err)
	}
	return nil
}

// New returns a DynamoDB journal when a table is configured, otherwise Noop.
// DYNAMODB_ENDPOINT points the client at a local DynamoDB.
func New(ctx context.Context, cfg config.AuditConfig) (Journal, error) {
	table := cfg.GetPaymentAuditTable()
	if table == "" {
		return Noop{}, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.GetAWSRegion())}
	endpoint := cfg.GetDynamoDBEndpoint()
	if endpoint != "" {
		// Local DynamoDB ignores credentials but the SDK requires some.
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("local", "local", "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewDynamoJournal(client, table), nil
}
