package database

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/internal/awsconfig"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// dynamoGetItemAPI is the subset of the DynamoDB client used here.
type dynamoGetItemAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

var dynamoGetDescriptor = component.Descriptor{
	Name:        "database.dynamodb_get",
	Description: "Reads one DynamoDB item by primary key",
	Group:       "database",
	Inputs: []component.InputDef{
		{Name: "key", Type: component.TypeJSON, Description: `Primary key attributes, e.g. {"pk": "user#1"}`},
	},
	Output: component.TypeJSON,
	Config: append([]component.ConfigField{
		{Key: "table", Required: true},
		{Key: "consistent_read", Default: false},
	}, awsconfig.Fields()...),
}

type dynamoGet struct {
	component.Base
	client *component.Lazy[dynamoGetItemAPI]
}

func newDynamoGet(cfg component.Config) (component.Component, error) {
	return &dynamoGet{
		Base: component.NewBase(dynamoGetDescriptor, cfg),
		client: component.NewLazy(func(ctx context.Context) (dynamoGetItemAPI, error) {
			awsCfg, err := awsconfig.Load(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
				o.BaseEndpoint = awsconfig.Endpoint(cfg)
			}), nil
		}),
	}, nil
}

func (d *dynamoGet) Run(ctx context.Context, in component.Inputs) (any, error) {
	if err := d.Require("table"); err != nil {
		return nil, err
	}
	raw, ok := in.Value("key").(map[string]any)
	if !ok || len(raw) == 0 {
		return nil, d.InvalidInput("key", "expected a non-empty object of key attributes")
	}
	key, err := toAttributeMap(raw)
	if err != nil {
		return nil, d.InvalidInput("key", "%v", err)
	}

	client, err := d.client.Get(ctx)
	if err != nil {
		return nil, d.External("client", err)
	}
	out, err := client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.Config().String("table")),
		Key:            key,
		ConsistentRead: aws.Bool(d.Config().Bool("consistent_read", false)),
	})
	if err != nil {
		return nil, d.External("GetItem", err)
	}
	if out.Item == nil {
		return map[string]any{"found": false, "item": nil}, nil
	}
	item, err := fromAttributeMap(out.Item)
	if err != nil {
		return nil, d.External("decode", err)
	}
	return map[string]any{"found": true, "item": item}, nil
}

func toAttributeMap(m map[string]any) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(m))
	for k, v := range m {
		av, err := toAttribute(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

func toAttribute(v any) (types.AttributeValue, error) {
	switch t := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case string:
		return &types.AttributeValueMemberS{Value: t}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: t}, nil
	case float64:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(t, 'f', -1, 64)}, nil
	case int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(t, 10)}, nil
	case int:
		return &types.AttributeValueMemberN{Value: strconv.Itoa(t)}, nil
	case map[string]any:
		m, err := toAttributeMap(t)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	case []any:
		l := make([]types.AttributeValue, len(t))
		for i, item := range t {
			av, err := toAttribute(item)
			if err != nil {
				return nil, err
			}
			l[i] = av
		}
		return &types.AttributeValueMemberL{Value: l}, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func fromAttributeMap(m map[string]types.AttributeValue) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, av := range m {
		v, err := fromAttribute(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func fromAttribute(av types.AttributeValue) (any, error) {
	switch t := av.(type) {
	case *types.AttributeValueMemberS:
		return t.Value, nil
	case *types.AttributeValueMemberN:
		return strconv.ParseFloat(t.Value, 64)
	case *types.AttributeValueMemberBOOL:
		return t.Value, nil
	case *types.AttributeValueMemberNULL:
		return nil, nil
	case *types.AttributeValueMemberB:
		return t.Value, nil
	case *types.AttributeValueMemberM:
		return fromAttributeMap(t.Value)
	case *types.AttributeValueMemberL:
		out := make([]any, len(t.Value))
		for i, item := range t.Value {
			v, err := fromAttribute(item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *types.AttributeValueMemberSS:
		return stringsToAny(t.Value), nil
	case *types.AttributeValueMemberNS:
		out := make([]any, len(t.Value))
		for i, n := range t.Value {
			f, err := strconv.ParseFloat(n, 64)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported attribute type %T", av)
	}
}

func stringsToAny(ss []string) []any {
	sorted := append([]string(nil), ss...)
	sort.Strings(sorted)
	out := make([]any, len(sorted))
	for i, s := range sorted {
		out[i] = s
	}
	return out
}
