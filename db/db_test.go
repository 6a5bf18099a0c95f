package db

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	dynamodbiface.DynamoDBAPI
	items []map[string]*dynamodb.AttributeValue
	got   *dynamodb.BatchGetItemInput
}

func (f *fakeDynamo) BatchGetItem(in *dynamodb.BatchGetItemInput) (*dynamodb.BatchGetItemOutput, error) {
	f.got = in
	return &dynamodb.BatchGetItemOutput{
		Responses: map[string][]map[string]*dynamodb.AttributeValue{StylesTable: f.items},
	}, nil
}

func TestGetStyleNames(t *testing.T) {
	fake := &fakeDynamo{items: []map[string]*dynamodb.AttributeValue{
		{"PK": {S: aws.String("0")}, "Name": {S: aws.String("baroque")}},
		{"PK": {S: aws.String("2")}, "Name": {S: aws.String("romantic")}},
		{"PK": {S: aws.String("x")}, "Name": {S: aws.String("broken")}},
	}}

	names, err := GetStyleNames(fake, []int{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "baroque", 2: "romantic"}, names)
	assert.Len(t, fake.got.RequestItems[StylesTable].Keys, 3)
}

func TestGetStyleNamesEmpty(t *testing.T) {
	names, err := GetStyleNames(&fakeDynamo{}, nil)
	require.NoError(t, err)
	assert.Empty(t, names)
}
