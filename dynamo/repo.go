// Package dynamo implements the credential store on DynamoDB: a single
// table keyed by UserEmail, with the image sequence held in a list
// attribute and appended via list_append update expressions.
package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/serjogas/galleria"
)

const keyAttr = "UserEmail"

// Repo is a galleria.CredentialRepo backed by one DynamoDB table.
type Repo struct {
	client *dynamodb.Client
	table  string
}

func New(client *dynamodb.Client, table string) *Repo {
	return &Repo{client: client, table: table}
}

type imageItem struct {
	ID       string `dynamodbav:"ID"`
	Path     string `dynamodbav:"Path"`
	Metadata string `dynamodbav:"Metadata,omitempty"`
	Status   string `dynamodbav:"Status"`
}

type userItem struct {
	UserEmail string      `dynamodbav:"UserEmail"`
	Password  string      `dynamodbav:"Password"`
	Images    []imageItem `dynamodbav:"Images"`
}

func (r *Repo) GetUser(ctx context.Context, email string) (galleria.UserRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       emailKey(email),
	})
	if err != nil {
		return galleria.UserRecord{}, fmt.Errorf("get user %s: %w", email, err)
	}
	if out.Item == nil {
		return galleria.UserRecord{}, fmt.Errorf("get user %s: %w", email, galleria.ErrNotFound)
	}

	var item userItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return galleria.UserRecord{}, fmt.Errorf("get user %s: unmarshal: %w", email, err)
	}
	return fromItem(item)
}

func (r *Repo) CreateUser(ctx context.Context, rec galleria.UserRecord) error {
	av, err := attributevalue.MarshalMap(toItem(rec))
	if err != nil {
		return fmt.Errorf("create user %s: marshal: %w", rec.Email, err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(" + keyAttr + ")"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("create user %s: %w", rec.Email, galleria.ErrConflict)
		}
		return fmt.Errorf("create user %s: %w", rec.Email, err)
	}
	return nil
}

func (r *Repo) AppendImages(ctx context.Context, email string, entries []galleria.ImageEntry) error {
	items := make([]imageItem, len(entries))
	for i, e := range entries {
		items[i] = toImageItem(e)
	}
	list, err := attributevalue.MarshalList(items)
	if err != nil {
		return fmt.Errorf("append images for %s: marshal: %w", email, err)
	}

	// UpdateItem creates the item when absent, which is how the aggregate
	// record comes into being on first upload.
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.table),
		Key:                      emailKey(email),
		UpdateExpression:         aws.String("SET #I = list_append(if_not_exists(#I, :empty), :new)"),
		ExpressionAttributeNames: map[string]string{"#I": "Images"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":new":   &types.AttributeValueMemberL{Value: list},
		},
	})
	if err != nil {
		return fmt.Errorf("append images for %s: %w", email, err)
	}
	return nil
}

func (r *Repo) UpdateImage(ctx context.Context, email string, entry galleria.ImageEntry) error {
	// The list index is resolved from a fresh read; the positional write
	// below can race a concurrent append for the same record.
	rec, err := r.GetUser(ctx, email)
	if err != nil {
		return fmt.Errorf("update image for %s: %w", email, err)
	}

	idx := -1
	for i, img := range rec.Images {
		if img.ID == entry.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("update image %s for %s: %w", entry.ID, email, galleria.ErrNotFound)
	}

	av, err := attributevalue.Marshal(toImageItem(entry))
	if err != nil {
		return fmt.Errorf("update image for %s: marshal: %w", email, err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       emailKey(email),
		UpdateExpression:          aws.String(fmt.Sprintf("SET #I[%d] = :img", idx)),
		ExpressionAttributeNames:  map[string]string{"#I": "Images"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":img": av},
	})
	if err != nil {
		return fmt.Errorf("update image for %s: %w", email, err)
	}
	return nil
}

func emailKey(email string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		keyAttr: &types.AttributeValueMemberS{Value: email},
	}
}

func toItem(rec galleria.UserRecord) userItem {
	images := make([]imageItem, len(rec.Images))
	for i, img := range rec.Images {
		images[i] = toImageItem(img)
	}
	return userItem{
		UserEmail: rec.Email,
		Password:  rec.PasswordHash,
		Images:    images,
	}
}

func toImageItem(e galleria.ImageEntry) imageItem {
	return imageItem{
		ID:       e.ID.String(),
		Path:     e.Path,
		Metadata: e.Metadata,
		Status:   string(e.Status),
	}
}

func fromItem(item userItem) (galleria.UserRecord, error) {
	rec := galleria.UserRecord{
		Email:        item.UserEmail,
		PasswordHash: item.Password,
		Images:       make([]galleria.ImageEntry, len(item.Images)),
	}
	for i, img := range item.Images {
		id, err := uuid.Parse(img.ID)
		if err != nil {
			return galleria.UserRecord{}, fmt.Errorf("parse image id %q: %w", img.ID, err)
		}
		rec.Images[i] = galleria.ImageEntry{
			ID:       id,
			Path:     img.Path,
			Metadata: img.Metadata,
			Status:   galleria.ImageStatus(img.Status),
		}
	}
	return rec, nil
}
