package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"hcert/internal/certificate/models"
	"hcert/internal/cose"
	"hcert/internal/hc1"
	"hcert/internal/issuance"
	"hcert/internal/signing"
)

// runCanary issues one synthetic vaccination barcode through the configured
// pipeline, then decodes it and verifies the signature. The canary consumes
// one ledger identifier.
func runCanary(ctx context.Context, svc *issuance.Service, keyring *signing.Keyring, country string) error {
	res := svc.Generate(ctx, issuance.Request{
		Kind: models.KindVaccination,
		Entries: []issuance.Entry{{Record: models.VaccinationEvent{
			ID:              "canary",
			DiseaseTargeted: models.Coding{Code: "840539006"},
			VaccineType:     models.Coding{Code: "1119349007"},
			Product:         models.Coding{Code: "EU/1/20/1528"},
			Manufacturer:    models.Coding{Code: "ORG-100030215"},
			DoseNumber:      1,
			SeriesDoses:     2,
			OccurrenceDate:  time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
			Country:         country,
		}}},
		Subject: models.Subject{
			FamilyName:  "Canary",
			GivenName:   "Check",
			DateOfBirth: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Issuing: models.IssuingContext{Country: country, KeyCountry: country},
	})
	if len(res.Barcodes) != 1 {
		return fmt.Errorf("expected one result, got %d", len(res.Barcodes))
	}
	if r := res.Barcodes[0]; r.Failed() {
		return fmt.Errorf("%s: %s", r.Error.Code, r.Error.Message)
	}

	envelope, err := hc1.Decode(res.Barcodes[0].Barcode)
	if err != nil {
		return err
	}
	env, err := cose.Decode(envelope)
	if err != nil {
		return err
	}
	header, err := env.Header()
	if err != nil {
		return err
	}
	pub, err := keyring.PublicKey(base64.StdEncoding.EncodeToString(header.KeyID))
	if err != nil {
		return errors.Join(errors.New("canary signed with an unknown key"), err)
	}
	return cose.Verify(env, pub)
}
