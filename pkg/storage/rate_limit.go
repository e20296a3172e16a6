package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// bucketTTLSlack keeps a bucket row around for two extra minutes after
// its minute window ends.
const bucketTTLSlack = 180

// RateLimiter enforces a per-IP sliding-minute request ceiling with a
// single conditional increment against the counter table. The
// conditional update serializes concurrent requests, so the stored
// count never exceeds the limit.
type RateLimiter struct {
	client DynamoDBAPI
	table  string
	now    func() time.Time
}

// NewRateLimiter creates a limiter over the given table.
func NewRateLimiter(client DynamoDBAPI, table string) *RateLimiter {
	return &RateLimiter{client: client, table: table, now: time.Now}
}

// BucketKey builds the counter key for a source IP within an epoch
// minute. An empty IP falls back to "unknown".
func BucketKey(sourceIP string, epochMinute int64) string {
	ip := strings.TrimSpace(sourceIP)
	if ip == "" {
		ip = "unknown"
	}
	return fmt.Sprintf("%s#%d", ip, epochMinute)
}

// Check increments the caller's bucket and reports whether the request
// is within the per-minute limit. A failed condition means over-limit;
// any other store error propagates.
func (r *RateLimiter) Check(ctx context.Context, sourceIP string, perMinuteLimit int) (bool, error) {
	if perMinuteLimit < 1 {
		perMinuteLimit = 1
	}

	epochMinute := r.now().Unix() / 60
	ttl := epochMinute*60 + bucketTTLSlack
	bucketKey := BucketKey(sourceIP, epochMinute)

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.table),
		Key:                 map[string]types.AttributeValue{"bucketKey": &types.AttributeValueMemberS{Value: bucketKey}},
		UpdateExpression:    aws.String("SET #count = if_not_exists(#count, :zero) + :inc, #ttl = :ttl"),
		ConditionExpression: aws.String("attribute_not_exists(#count) OR #count < :limit"),
		ExpressionAttributeNames: map[string]string{
			"#count": "requestCount",
			"#ttl":   "ttl",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero":  &types.AttributeValueMemberN{Value: "0"},
			":inc":   &types.AttributeValueMemberN{Value: "1"},
			":limit": &types.AttributeValueMemberN{Value: strconv.Itoa(perMinuteLimit)},
			":ttl":   &types.AttributeValueMemberN{Value: strconv.FormatInt(ttl, 10)},
		},
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
