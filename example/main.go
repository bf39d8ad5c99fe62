package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"time"

	shutterdeck "github.com/shutterdeck/go-client-sdk"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	options := shutterdeck.Options{
		APIBaseURI:         os.Getenv("SHUTTERDECK_API"),
		RequestTimeout:     10 * time.Second,
		ClientEventHandler: make(chan shutterdeck.ClientEvent, 100),
		OnUnauthenticated: func() {
			log.Println("session expired, sign in again")
			stop()
		},
	}

	client, err := shutterdeck.NewClient(&options)
	if err != nil {
		log.Fatalf("Error creating client: %v", err)
	}
	defer client.Close()

	go func() {
		for e := range options.ClientEventHandler {
			log.Printf("client event: %s %s", e.EventType, e.Status)
		}
	}()

	profile, err := client.Bootstrap(ctx)
	if errors.Is(err, shutterdeck.ErrUnauthenticated) {
		auth, err := client.Login(ctx, shutterdeck.Credentials{
			Email:    os.Getenv("SHUTTERDECK_EMAIL"),
			Password: os.Getenv("SHUTTERDECK_PASSWORD"),
		})
		if err != nil {
			log.Fatalf("Error signing in: %v", err)
		}
		profile = auth.User
	} else if err != nil {
		log.Fatalf("Error verifying session: %v", err)
	}
	log.Printf("signed in as %s (%s)", profile.Email, profile.Role)

	collections := shutterdeck.NewDebouncer(500*time.Millisecond, func() {
		resp, err := client.Gateway().Get(ctx, "/collections")
		if err != nil {
			log.Printf("Error fetching collections: %v", err)
			return
		}
		log.Printf("collections refreshed (%d bytes)", len(resp.Body))
	})
	defer collections.Stop()

	unsubscribe := client.Subscribe(shutterdeck.EventHandlers{
		OnConnected: func() { log.Println("stream connected") },
		OnPhotoEvent: func(e shutterdeck.Envelope) {
			log.Printf("photo event %s", e.Type)
		},
		OnCollectionEvent: func(e shutterdeck.Envelope) {
			log.Printf("collection event %s", e.Type)
			collections.Trigger()
		},
		OnError: func(err error) {
			log.Printf("stream gave up: %v", err)
			stop()
		},
	})
	defer unsubscribe()

	client.Connect()
	<-ctx.Done()
}
