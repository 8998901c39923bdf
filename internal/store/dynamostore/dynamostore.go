// Package dynamostore persists businesses and orders in DynamoDB.
//
// Tables:
//   - businesses: PK id (S). Holds the business document and a version number
//     used for conditional writes.
//   - orders: PK business_id (S), SK id (S).
//   - owners: PK owner_id (S). Points at the owner's business; written in the
//     same transaction as the business so an owner has at most one.
package dynamostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shopsim/internal/game"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

//go:generate mockgen -destination=mock_api_test.go -package=dynamostore shopsim/internal/store/dynamostore API

// API is the slice of *dynamodb.Client the store calls.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

var ErrWriteConflict = errors.New("conditional write kept conflicting")

const maxAttempts = 5

type Tables struct {
	Businesses string
	Orders     string
	Owners     string
}

func DefaultTables() Tables {
	return Tables{Businesses: "shopsim_businesses", Orders: "shopsim_orders", Owners: "shopsim_owners"}
}

type businessItem struct {
	ID        string `dynamodbav:"id"`
	OwnerID   string `dynamodbav:"owner_id"`
	TypeID    string `dynamodbav:"type_id"`
	Version   int64  `dynamodbav:"version"`
	State     string `dynamodbav:"state"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

type orderItem struct {
	BusinessID string `dynamodbav:"business_id"`
	ID         string `dynamodbav:"id"`
	Status     string `dynamodbav:"status"`
	CreatedAt  string `dynamodbav:"created_at"`
	Body       string `dynamodbav:"body"`
}

type ownerItem struct {
	OwnerID    string `dynamodbav:"owner_id"`
	BusinessID string `dynamodbav:"business_id"`
}

type Store struct {
	ddb    API
	tables Tables
	log    *slog.Logger
}

var _ game.Store = (*Store)(nil)

func New(ddb API, tables Tables, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultTables()
	if tables.Businesses == "" {
		tables.Businesses = def.Businesses
	}
	if tables.Orders == "" {
		tables.Orders = def.Orders
	}
	if tables.Owners == "" {
		tables.Owners = def.Owners
	}
	return &Store{ddb: ddb, tables: tables, log: logger}
}

func stringKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{name: &types.AttributeValueMemberS{Value: value}}
}

func orderKey(businessID, orderID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"business_id": &types.AttributeValueMemberS{Value: businessID},
		"id":          &types.AttributeValueMemberS{Value: orderID},
	}
}

func (s *Store) getBusiness(ctx context.Context, businessID string) (*businessItem, *game.BusinessState, error) {
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tables.Businesses),
		Key:            stringKey("id", businessID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, nil, err
	}
	if len(out.Item) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", game.ErrBusinessNotFound, businessID)
	}
	var it businessItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, nil, err
	}
	var b game.BusinessState
	if err := json.Unmarshal([]byte(it.State), &b); err != nil {
		return nil, nil, fmt.Errorf("decode business %s: %w", businessID, err)
	}
	return &it, &b, nil
}

func (s *Store) LoadBusiness(ctx context.Context, businessID string) (*game.BusinessState, error) {
	_, b, err := s.getBusiness(ctx, businessID)
	return b, err
}

func (s *Store) LoadBusinessByOwner(ctx context.Context, ownerID string) (*game.BusinessState, error) {
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tables.Owners),
		Key:            stringKey("owner_id", ownerID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("%w: owner %s", game.ErrBusinessNotFound, ownerID)
	}
	var it ownerItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	return s.LoadBusiness(ctx, it.BusinessID)
}

func (s *Store) ListBusinessIDs(ctx context.Context) ([]string, error) {
	var ids []string
	p := dynamodb.NewScanPaginator(s.ddb, &dynamodb.ScanInput{
		TableName:                aws.String(s.tables.Businesses),
		ProjectionExpression:     aws.String("#id"),
		ExpressionAttributeNames: map[string]string{"#id": "id"},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var items []businessItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, err
		}
		ids = append(ids, lo.Map(items, func(it businessItem, _ int) string { return it.ID })...)
	}
	return ids, nil
}

func (s *Store) queryOrders(ctx context.Context, businessID string, activeOnly bool) ([]orderItem, error) {
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tables.Orders),
		KeyConditionExpression:    aws.String("#bid = :bid"),
		ExpressionAttributeNames:  map[string]string{"#bid": "business_id"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":bid": &types.AttributeValueMemberS{Value: businessID}},
		ConsistentRead:            aws.Bool(true),
	}
	if activeOnly {
		in.FilterExpression = aws.String("#status IN (:p, :a, :w)")
		in.ExpressionAttributeNames["#status"] = "status"
		in.ExpressionAttributeValues[":p"] = &types.AttributeValueMemberS{Value: string(game.StatusPending)}
		in.ExpressionAttributeValues[":a"] = &types.AttributeValueMemberS{Value: string(game.StatusAccepted)}
		in.ExpressionAttributeValues[":w"] = &types.AttributeValueMemberS{Value: string(game.StatusInProgress)}
	}
	var out []orderItem
	p := dynamodb.NewQueryPaginator(s.ddb, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var items []orderItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

func (s *Store) LoadActiveOrders(ctx context.Context, businessID string) ([]game.Order, error) {
	items, err := s.queryOrders(ctx, businessID, true)
	if err != nil {
		return nil, err
	}
	orders := make([]game.Order, 0, len(items))
	for _, it := range items {
		var o game.Order
		if err := json.Unmarshal([]byte(it.Body), &o); err != nil {
			return nil, fmt.Errorf("decode order %s: %w", it.ID, err)
		}
		orders = append(orders, o)
	}
	sortByCreated(orders)
	return orders, nil
}

func toOrderItem(businessID string, o game.Order) (map[string]types.AttributeValue, error) {
	o.BusinessID = businessID
	body, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("encode order %s: %w", o.ID, err)
	}
	return attributevalue.MarshalMap(orderItem{
		BusinessID: businessID,
		ID:         o.ID,
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt.UTC().Format(time.RFC3339Nano),
		Body:       string(body),
	})
}

// SaveNewOrders puts each order only if its id is unseen.
func (s *Store) SaveNewOrders(ctx context.Context, businessID string, orders []game.Order) error {
	for _, o := range orders {
		av, err := toOrderItem(businessID, o)
		if err != nil {
			return err
		}
		_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                aws.String(s.tables.Orders),
			Item:                     av,
			ConditionExpression:      aws.String("attribute_not_exists(#id)"),
			ExpressionAttributeNames: map[string]string{"#id": "id"},
		})
		if err != nil && !isConditionFailed(err) {
			return fmt.Errorf("put order %s: %w", o.ID, err)
		}
	}
	return nil
}

// UpdateOrderStatus rewrites the order only while its stored status is the
// one just read, and drops updates that would move it backwards.
func (s *Store) UpdateOrderStatus(ctx context.Context, businessID, orderID string, update game.OrderUpdate) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
			TableName:      aws.String(s.tables.Orders),
			Key:            orderKey(businessID, orderID),
			ConsistentRead: aws.Bool(true),
		})
		if err != nil {
			return err
		}
		if len(out.Item) == 0 {
			return fmt.Errorf("%w: %s", game.ErrOrderNotFound, orderID)
		}
		var it orderItem
		if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
			return err
		}
		var o game.Order
		if err := json.Unmarshal([]byte(it.Body), &o); err != nil {
			return fmt.Errorf("decode order %s: %w", orderID, err)
		}
		if !game.CanAdvance(o.Status, update.Status) {
			s.log.Debug("stale order update dropped", "order_id", orderID, "stored", o.Status, "update", update.Status)
			return nil
		}
		o.ApplyUpdate(update)
		av, err := toOrderItem(businessID, o)
		if err != nil {
			return err
		}
		_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                 aws.String(s.tables.Orders),
			Item:                      av,
			ConditionExpression:       aws.String("#status = :prev"),
			ExpressionAttributeNames:  map[string]string{"#status": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":prev": &types.AttributeValueMemberS{Value: it.Status}},
		})
		if err == nil {
			return nil
		}
		if !isConditionFailed(err) {
			return err
		}
	}
	return ErrWriteConflict
}

func (s *Store) ApplyBusinessDelta(ctx context.Context, businessID string, delta game.BusinessDelta) error {
	return s.mutateBusiness(ctx, businessID, func(b *game.BusinessState) bool {
		return game.ApplyDelta(b, delta)
	})
}

func (s *Store) SaveMarketState(ctx context.Context, businessID string, market game.MarketState) error {
	return s.mutateBusiness(ctx, businessID, func(b *game.BusinessState) bool {
		b.Market = market.Clone()
		return true
	})
}

// mutateBusiness is a read, modify, conditional put loop on the version
// attribute.
func (s *Store) mutateBusiness(ctx context.Context, businessID string, fn func(*game.BusinessState) bool) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		it, b, err := s.getBusiness(ctx, businessID)
		if err != nil {
			return err
		}
		if !fn(b) {
			return nil
		}
		av, err := marshalBusiness(*b, it.Version+1)
		if err != nil {
			return err
		}
		_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                 aws.String(s.tables.Businesses),
			Item:                      av,
			ConditionExpression:       aws.String("#version = :v"),
			ExpressionAttributeNames:  map[string]string{"#version": "version"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberN{Value: fmt.Sprint(it.Version)}},
		})
		if err == nil {
			return nil
		}
		if !isConditionFailed(err) {
			return err
		}
		s.log.Debug("business write raced, retrying", "business_id", businessID, "attempt", attempt+1)
	}
	return ErrWriteConflict
}

func marshalBusiness(b game.BusinessState, version int64) (map[string]types.AttributeValue, error) {
	body, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	return attributevalue.MarshalMap(businessItem{
		ID:        b.ID,
		OwnerID:   b.OwnerID,
		TypeID:    b.TypeID,
		Version:   version,
		State:     string(body),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// CreateBusiness writes the business and the owner pointer in one
// transaction; an existing pointer cancels both.
func (s *Store) CreateBusiness(ctx context.Context, state game.BusinessState) (string, error) {
	if state.ID == "" {
		state.ID = uuid.NewString()
	}
	biz, err := marshalBusiness(state, 1)
	if err != nil {
		return "", err
	}
	owner, err := attributevalue.MarshalMap(ownerItem{OwnerID: state.OwnerID, BusinessID: state.ID})
	if err != nil {
		return "", err
	}
	_, err = s.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                aws.String(s.tables.Owners),
				Item:                     owner,
				ConditionExpression:      aws.String("attribute_not_exists(#owner)"),
				ExpressionAttributeNames: map[string]string{"#owner": "owner_id"},
			}},
			{Put: &types.Put{
				TableName:                aws.String(s.tables.Businesses),
				Item:                     biz,
				ConditionExpression:      aws.String("attribute_not_exists(#id)"),
				ExpressionAttributeNames: map[string]string{"#id": "id"},
			}},
		},
	})
	if ownerTaken(err) {
		return "", fmt.Errorf("%w: %s", game.ErrOwnerHasBusiness, state.OwnerID)
	}
	if err != nil {
		return "", err
	}
	return state.ID, nil
}

// DeleteBusiness drops the business and its owner pointer together, then
// clears the orders in batches.
func (s *Store) DeleteBusiness(ctx context.Context, businessID string) error {
	_, b, err := s.getBusiness(ctx, businessID)
	if err != nil {
		return err
	}
	_, err = s.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName: aws.String(s.tables.Businesses),
				Key:       stringKey("id", businessID),
			}},
			{Delete: &types.Delete{
				TableName:                 aws.String(s.tables.Owners),
				Key:                       stringKey("owner_id", b.OwnerID),
				ConditionExpression:       aws.String("attribute_not_exists(#bid) OR #bid = :bid"),
				ExpressionAttributeNames:  map[string]string{"#bid": "business_id"},
				ExpressionAttributeValues: map[string]types.AttributeValue{":bid": &types.AttributeValueMemberS{Value: businessID}},
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("delete business %s: %w", businessID, err)
	}

	items, err := s.queryOrders(ctx, businessID, false)
	if err != nil {
		return fmt.Errorf("list orders of %s: %w", businessID, err)
	}
	for _, chunk := range lo.Chunk(items, 25) {
		reqs := lo.Map(chunk, func(it orderItem, _ int) types.WriteRequest {
			return types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: orderKey(businessID, it.ID)}}
		})
		if _, err := s.ddb.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.tables.Orders: reqs},
		}); err != nil {
			s.log.Warn("order cleanup incomplete", "business_id", businessID, "err", err)
			return nil
		}
	}
	return nil
}

func isConditionFailed(err error) bool {
	var cfe *types.ConditionalCheckFailedException
	return errors.As(err, &cfe)
}

// ownerTaken reports a cancelled create whose first item, the owner pointer,
// failed its condition.
func ownerTaken(err error) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) || len(tce.CancellationReasons) == 0 {
		return false
	}
	return aws.ToString(tce.CancellationReasons[0].Code) == "ConditionalCheckFailed"
}
