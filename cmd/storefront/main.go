package main

import (
	"context"
	"log"

	"github.com/MikeMC777/ordenes-storefront/internal/config"
	"github.com/MikeMC777/ordenes-storefront/internal/storefront"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	app, err := storefront.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("open storefront: %v", err)
	}
	defer app.Close()

	if err := app.Catalog.Load(ctx); err != nil {
		log.Printf("[storefront] initial catalog load failed: %v", err)
	}
	if app.Session.Authenticated() {
		if err := app.Cart.Load(ctx); err != nil {
			log.Printf("[storefront] initial cart load failed: %v", err)
		}
	}

	r := newRouter(app)
	log.Printf("storefront listening on %s (api=%s)", cfg.StorefrontAddr, cfg.APIBaseURL)
	if err := r.Run(cfg.StorefrontAddr); err != nil {
		log.Printf("storefront stopped: %v", err)
	}
}
