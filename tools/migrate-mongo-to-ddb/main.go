package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	awspkg "github.com/yashrajoria/chat-billing/pkg/aws"
	ddbpkg "github.com/yashrajoria/chat-billing/pkg/dynamodb"
	"github.com/yashrajoria/chat-billing/services/billing-service/database"
	"github.com/yashrajoria/chat-billing/services/billing-service/models"
	"github.com/yashrajoria/chat-billing/services/billing-service/repository"
)

// Copies the user plan records and the subscription map from MongoDB into
// DynamoDB. Writes are merges, so the tool can be re-run safely.
func main() {
	var mongoURI, dbName, prefix string
	var dryRun bool
	flag.StringVar(&mongoURI, "mongo", os.Getenv("MONGO_DB_URL"), "MongoDB URI")
	flag.StringVar(&dbName, "db", os.Getenv("MONGO_DB_NAME"), "MongoDB database name")
	flag.StringVar(&prefix, "table-prefix", os.Getenv("DDB_TABLE_PREFIX"), "DynamoDB table name prefix")
	flag.BoolVar(&dryRun, "dry-run", false, "read from Mongo without writing to DynamoDB")
	flag.Parse()

	if mongoURI == "" || dbName == "" {
		log.Fatal("MONGO_DB_URL and MONGO_DB_NAME must be set or provided via flags")
	}

	ctx := context.Background()
	mclient, db, err := database.ConnectMongo(ctx, mongoURI, dbName)
	if err != nil {
		log.Fatalf("mongo connect: %v", err)
	}
	defer database.CloseMongo(mclient) //nolint:errcheck

	awsCfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		log.Fatalf("aws config: %v", err)
	}
	dst := repository.NewDynamoStore(ddbpkg.NewClientFromConfig(awsCfg), prefix)

	total := 0
	for _, collection := range []string{models.CollectionUsers, models.CollectionSubscriptions} {
		cur, err := db.Collection(collection).Find(ctx, bson.M{}, options.Find().SetBatchSize(500))
		if err != nil {
			log.Fatalf("mongo find %s: %v", collection, err)
		}
		n, err := migrate(ctx, cur, dst, collection, dryRun)
		if err != nil {
			log.Fatalf("migrate %s: %v", collection, err)
		}
		log.Printf("migrated %d documents from %s", n, collection)
		total += n
	}
	fmt.Printf("Migration complete. migrated=%d dry_run=%t\n", total, dryRun)
}

type cursor interface {
	Next(ctx context.Context) bool
	Decode(v interface{}) error
	Err() error
	Close(ctx context.Context) error
}

// migrate drains cur into dst. Documents that fail to decode or lack an id
// are logged and skipped; a write failure aborts the run.
func migrate(ctx context.Context, cur cursor, dst repository.DocumentStore, collection string, dryRun bool) (int, error) {
	defer cur.Close(ctx) //nolint:errcheck

	count := 0
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			log.Printf("decode error in %s: %v", collection, err)
			continue
		}
		id := documentID(raw["_id"])
		if id == "" {
			log.Printf("skipping %s document without _id", collection)
			continue
		}
		doc := repository.FromBSON(raw)
		if !dryRun {
			if err := dst.Set(ctx, collection, id, doc, repository.SetOptions{Merge: true}); err != nil {
				return count, fmt.Errorf("write %s/%s: %w", collection, id, err)
			}
		}
		count++
		if count%100 == 0 {
			log.Printf("migrated %d %s documents", count, collection)
		}
	}
	return count, cur.Err()
}

func documentID(v interface{}) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	default:
		return fmt.Sprint(id)
	}
}
