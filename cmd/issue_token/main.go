package main

import (
	"flag"
	"fmt"
	"os"

	"mines_arena/internal/logger"
	"mines_arena/internal/service"

	"github.com/joho/godotenv"
)

// Prints a signed token for local testing. Uses JWT_SECRET from env or .env.
func main() {
	_ = godotenv.Load()

	player := flag.String("player", "", "player id (token subject)")
	role := flag.String("role", service.RolePlayer, "role claim: player, admin or owner")
	flag.Parse()

	if *player == "" {
		logger.Fatal("-player is required")
	}
	switch *role {
	case service.RolePlayer, service.RoleAdmin, service.RoleOwner:
	default:
		logger.Fatal("unknown role", "role", *role)
	}

	service.InitJWT(os.Getenv("JWT_SECRET"))
	token, err := service.GenerateJWT(*player, *role)
	if err != nil {
		logger.Fatal("failed to generate token", "error", err)
	}
	fmt.Println(token)
}
