// Package storage implements the two DynamoDB-backed stores: the
// content-addressed embedding cache and the per-client rate counter.
package storage

import (
	"context"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DynamoDBAPI is the slice of the DynamoDB API used by this package.
// It exists so tests can substitute a fake.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// formatNumber renders a float with 8 decimal places, trimming
// trailing zeros, for storage as a DynamoDB number attribute.
func formatNumber(value float64) string {
	rendered := strconv.FormatFloat(value, 'f', 8, 64)
	rendered = strings.TrimRight(rendered, "0")
	rendered = strings.TrimRight(rendered, ".")
	if rendered == "" || rendered == "-" {
		return "0"
	}
	return rendered
}
