// Command main populates the state stores with demo data.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"pulse/internal/config"
	"pulse/internal/kv"
	"pulse/internal/notify"
	"pulse/internal/seed"
	"pulse/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	email := flag.String("email", "", "Demo account email (defaults to demo@pulse.local)")
	password := flag.String("password", "", "Demo account password")
	numFriends := flag.Int("friends", 6, "Number of demo friends to create")
	numChats := flag.Int("chats", 4, "Number of demo chats to create")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var kvStore kv.Store
	switch cfg.StorageBackend {
	case config.BackendMemory:
		log.Fatal("seeding a memory backend is pointless; set STORAGE_BACKEND to sqlite, postgres, or redis")
	case config.BackendSQLite:
		kvStore, err = kv.OpenSQLite(cfg.SQLitePath)
	case config.BackendPostgres:
		kvStore, err = kv.OpenPostgres(cfg.DatabaseDSN())
	case config.BackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		kvStore, err = kv.ConnectRedis(ctx, cfg.RedisURL)
		cancel()
	}
	if err != nil {
		log.Fatalf("Failed to open storage backend: %v", err)
	}

	session := store.NewSessionStore(kvStore,
		store.WithSender(notify.LogSender{}),
		store.WithFreeCalls(cfg.FreeCalls),
	)
	friends := store.NewFriendsStore(kvStore, session)
	chats := store.NewChatsStore(kvStore, session)

	opts := seed.DefaultOptions()
	if *email != "" {
		opts.Email = *email
	}
	if *password != "" {
		opts.Password = *password
	}
	opts.Friends = *numFriends
	opts.Chats = *numChats

	log.Printf("Seeding %s: %d friends, %d chats", opts.Email, opts.Friends, opts.Chats)

	s := seed.NewSeeder(session, friends, chats)
	if err := s.Run(context.Background(), opts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding complete")
}
