package db

import (
	"strconv"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/pkg/errors"
)

const StylesTable = "deepj-styles"

// BatchGetItem only accepts 100 keys per request.
const maxKeys = 100

func NewClient(endpoint string) (dynamodbiface.DynamoDBAPI, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:   aws.String("localhost"),
		Endpoint: aws.String(endpoint),
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not create a new DynamoDB session")
	}
	return dynamodb.New(sess), nil
}

// GetStyleNames looks up display names for style indexes. Indexes missing
// from the table are missing from the result.
func GetStyleNames(client dynamodbiface.DynamoDBAPI, ids []int) (map[int]string, error) {
	if len(ids) > maxKeys {
		return nil, errors.Errorf("can look up at most %d styles at once, got %d", maxKeys, len(ids))
	}

	res := make(map[int]string)
	if len(ids) == 0 {
		return res, nil
	}

	var keys []map[string]*dynamodb.AttributeValue
	for _, id := range ids {
		keys = append(keys, map[string]*dynamodb.AttributeValue{
			"PK": {S: aws.String(strconv.Itoa(id))},
		})
	}

	input := &dynamodb.BatchGetItemInput{
		RequestItems: map[string]*dynamodb.KeysAndAttributes{
			StylesTable: {Keys: keys},
		},
	}
	out, err := client.BatchGetItem(input)
	if err != nil {
		return nil, errors.Wrap(err, "error from DynamoDB")
	}

	for _, item := range out.Responses[StylesTable] {
		pk, name := item["PK"], item["Name"]
		if pk == nil || pk.S == nil || name == nil || name.S == nil {
			continue
		}
		id, err := strconv.Atoi(*pk.S)
		if err != nil {
			continue
		}
		res[id] = *name.S
	}
	return res, nil
}
