package models

import (
	"log"

	"github.com/hlyanhtet/buildbooks_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Company{}, &User{},
		&Job{}, &CostCode{},
		&DrawRequest{}, &DrawRequestLine{}, &DrawRequestHistory{},
		&FundingTransaction{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
