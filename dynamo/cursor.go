package dynamo

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Every key attribute in the table is a string, so a cursor is just the
// key's attribute names and values.
func lastEvalKeyToCursor(lastEvalKey map[string]types.AttributeValue) (string, error) {
	plain := make(map[string]string, len(lastEvalKey))
	for name, value := range lastEvalKey {
		s, ok := value.(*types.AttributeValueMemberS)
		if !ok {
			return "", fmt.Errorf("key attribute %q is not a string", name)
		}
		plain[name] = s.Value
	}

	bytesJSON, err := json.Marshal(plain)
	if err != nil {
		return "", fmt.Errorf("failed to encode to JSON: %w", err)
	}

	return base64.URLEncoding.EncodeToString(bytesJSON), nil
}

func cursorToLastEval(cursor string) (map[string]types.AttributeValue, error) {
	bytesJSON, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to b64 decode: %w", err)
	}

	var plain map[string]string
	if err := json.Unmarshal(bytesJSON, &plain); err != nil {
		return nil, fmt.Errorf("failed to json decode: %w", err)
	}
	if len(plain) == 0 {
		return nil, fmt.Errorf("cursor holds no key")
	}

	key := make(map[string]types.AttributeValue, len(plain))
	for name, value := range plain {
		key[name] = &types.AttributeValueMemberS{Value: value}
	}

	return key, nil
}

var (
	tableKeyAttributes = []string{"PK", "SK"}
	gsi1KeyAttributes  = []string{"PK", "SK", "GSI1PK", "GSI1SK"}
)

func getKeyFromItem(keyAttributes []string, item map[string]types.AttributeValue) map[string]types.AttributeValue {
	result := map[string]types.AttributeValue{}
	for _, k := range keyAttributes {
		result[k] = item[k]
	}
	return result
}

// nextPageCursor builds the cursor for a query that asked for one item more
// than limit. LastEvaluatedKey can't be used directly since it points past
// the extra item.
func nextPageCursor(items []map[string]types.AttributeValue, keyAttributes []string, limit int32) *string {
	if len(items) <= int(limit) {
		return nil
	}

	lastItemGivenToUser := items[int(limit)-1]
	c, err := lastEvalKeyToCursor(getKeyFromItem(keyAttributes, lastItemGivenToUser))
	if err != nil {
		panic(fmt.Sprintf("failed to make cursor from item key: %s", err))
	}
	return &c
}
