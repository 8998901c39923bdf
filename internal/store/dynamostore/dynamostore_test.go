package dynamostore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"shopsim/internal/game"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func storedBusiness(t *testing.T, b game.BusinessState, version int64) *dynamodb.GetItemOutput {
	t.Helper()
	av, err := marshalBusiness(b, version)
	require.NoError(t, err)
	return &dynamodb.GetItemOutput{Item: av}
}

func decodePut(t *testing.T, in *dynamodb.PutItemInput) (businessItem, game.BusinessState) {
	t.Helper()
	var it businessItem
	require.NoError(t, attributevalue.UnmarshalMap(in.Item, &it))
	var b game.BusinessState
	require.NoError(t, json.Unmarshal([]byte(it.State), &b))
	return it, b
}

func TestLoadMissingBusiness(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := NewMockAPI(ctrl)
	s := New(api, Tables{}, nil)

	api.EXPECT().GetItem(gomock.Any(), gomock.Any()).Return(&dynamodb.GetItemOutput{}, nil)
	_, err := s.LoadBusiness(context.Background(), "nope")
	require.ErrorIs(t, err, game.ErrBusinessNotFound)
}

func TestCreateBusinessOwnerTaken(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := NewMockAPI(ctrl)
	s := New(api, DefaultTables(), nil)

	api.EXPECT().TransactWriteItems(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
			require.Len(t, in.TransactItems, 2)
			require.Equal(t, "shopsim_owners", aws.ToString(in.TransactItems[0].Put.TableName))
			return nil, &types.TransactionCanceledException{CancellationReasons: []types.CancellationReason{
				{Code: aws.String("ConditionalCheckFailed")},
				{Code: aws.String("None")},
			}}
		},
	)
	_, err := s.CreateBusiness(context.Background(), game.BusinessState{ID: "b1", OwnerID: "o1", TypeID: "salon"})
	require.ErrorIs(t, err, game.ErrOwnerHasBusiness)

	api.EXPECT().TransactWriteItems(gomock.Any(), gomock.Any()).Return(&dynamodb.TransactWriteItemsOutput{}, nil)
	id, err := s.CreateBusiness(context.Background(), game.BusinessState{OwnerID: "o2", TypeID: "salon"})
	require.NoError(t, err)
	require.NotEmpty(t, id)
}

func TestDeltaRetriesOnVersionConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := NewMockAPI(ctrl)
	s := New(api, Tables{}, nil)

	b := game.BusinessState{ID: "b1", OwnerID: "o1", TypeID: "food_truck", CashBalance: 100, Inventory: map[string]int{"patty": 4}}
	api.EXPECT().GetItem(gomock.Any(), gomock.Any()).Return(storedBusiness(t, b, 3), nil).Times(2)
	gomock.InOrder(
		api.EXPECT().PutItem(gomock.Any(), gomock.Any()).Return(nil, &types.ConditionalCheckFailedException{}),
		api.EXPECT().PutItem(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
				it, got := decodePut(t, in)
				require.EqualValues(t, 4, it.Version)
				require.Equal(t, 112.5, got.CashBalance)
				require.Equal(t, 2, got.Inventory["patty"])
				require.EqualValues(t, 7, got.LastDeltaSeq)
				return &dynamodb.PutItemOutput{}, nil
			},
		),
	)

	delta := game.BusinessDelta{Seq: 7, CashDelta: 12.5, InventoryDeltas: map[string]int{"patty": -2}}
	require.NoError(t, s.ApplyBusinessDelta(context.Background(), "b1", delta))
}

func TestReplayedDeltaWritesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := NewMockAPI(ctrl)
	s := New(api, Tables{}, nil)

	b := game.BusinessState{ID: "b1", OwnerID: "o1", CashBalance: 100, LastDeltaSeq: 9}
	api.EXPECT().GetItem(gomock.Any(), gomock.Any()).Return(storedBusiness(t, b, 1), nil)
	require.NoError(t, s.ApplyBusinessDelta(context.Background(), "b1", game.BusinessDelta{Seq: 9, CashDelta: 50}))
}

func TestStaleOrderUpdateDropped(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := NewMockAPI(ctrl)
	s := New(api, Tables{}, nil)

	o := game.Order{ID: "o1", Status: game.StatusCompleted, CreatedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	av, err := toOrderItem("b1", o)
	require.NoError(t, err)
	api.EXPECT().GetItem(gomock.Any(), gomock.Any()).Return(&dynamodb.GetItemOutput{Item: av}, nil)

	require.NoError(t, s.UpdateOrderStatus(context.Background(), "b1", "o1", game.OrderUpdate{Status: game.StatusAccepted}))
}

func TestSaveNewOrdersSkipsKnownIDs(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := NewMockAPI(ctrl)
	s := New(api, Tables{}, nil)

	gomock.InOrder(
		api.EXPECT().PutItem(gomock.Any(), gomock.Any()).Return(nil, &types.ConditionalCheckFailedException{}),
		api.EXPECT().PutItem(gomock.Any(), gomock.Any()).Return(&dynamodb.PutItemOutput{}, nil),
	)
	orders := []game.Order{{ID: "known", Status: game.StatusPending}, {ID: "fresh", Status: game.StatusPending}}
	require.NoError(t, s.SaveNewOrders(context.Background(), "b1", orders))
}
