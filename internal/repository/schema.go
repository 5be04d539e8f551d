package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const schema = `
	CREATE TABLE IF NOT EXISTS businesses (
		id            SERIAL PRIMARY KEY,
		business_name TEXT NOT NULL,
		owner_name    TEXT NOT NULL,
		email         TEXT UNIQUE NOT NULL,
		phone         TEXT NOT NULL,
		business_type TEXT NOT NULL,
		address       TEXT NOT NULL,
		latitude      DOUBLE PRECISION NOT NULL,
		longitude     DOUBLE PRECISION NOT NULL,
		website       TEXT,
		verified      BOOLEAN NOT NULL DEFAULT false,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS services (
		id           SERIAL PRIMARY KEY,
		business_id  INTEGER NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
		service_name TEXT NOT NULL,
		price        NUMERIC(10, 2) NOT NULL,
		duration     TEXT,
		description  TEXT
	);
	CREATE TABLE IF NOT EXISTS favorites (
		owner       TEXT NOT NULL,
		business_id INTEGER NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (owner, business_id)
	);
	CREATE INDEX IF NOT EXISTS idx_businesses_verified_type ON businesses (verified, business_type);
`

// Migrate creates the directory tables if they do not exist yet.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	return nil
}

// SampleService is a priced service of a sample business.
type SampleService struct {
	Name  string
	Price float64
}

// SampleBusiness is a verified listing inserted by SeedBusinesses.
type SampleBusiness struct {
	Name      string
	Owner     string
	Email     string
	Phone     string
	Type      string
	Address   string
	Latitude  float64
	Longitude float64
	Services  []SampleService
}

// SeedBusinesses inserts the given businesses as verified listings if the table is empty.
// It returns how many businesses were inserted.
func (r *Repository) SeedBusinesses(ctx context.Context, samples []SampleBusiness) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM businesses;`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count businesses: %w", err)
	}
	if count > 0 {
		r.log.DebugContext(ctx, "Sample data already exists", "count", count)
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, biz := range samples {
		if err = insertSample(ctx, tx, biz); err != nil {
			_ = tx.Rollback(ctx)
			return 0, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit sample data: %w", err)
	}

	r.log.InfoContext(ctx, "Added sample businesses", "count", len(samples))

	return len(samples), nil
}

func insertSample(ctx context.Context, tx pgx.Tx, biz SampleBusiness) error {
	var id int
	err := tx.QueryRow(ctx, `
		INSERT INTO businesses
			(business_name, owner_name, email, phone, business_type, address, latitude, longitude, verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true)
		RETURNING id;
	`, biz.Name, biz.Owner, biz.Email, biz.Phone, biz.Type, biz.Address, biz.Latitude, biz.Longitude).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to insert business %q: %w", biz.Name, err)
	}

	for _, svc := range biz.Services {
		if _, err = tx.Exec(ctx, `
			INSERT INTO services (business_id, service_name, price) VALUES ($1, $2, $3);
		`, id, svc.Name, svc.Price); err != nil {
			return fmt.Errorf("failed to insert service %q: %w", svc.Name, err)
		}
	}

	return nil
}

// SampleBusinesses returns the stock set of Canadian sample listings.
func SampleBusinesses() []SampleBusiness {
	return []SampleBusiness{
		{
			Name: "Toronto Glow Spa", Owner: "Sarah Johnson", Email: "sarah@toglow.com", Phone: "(416) 555-0101",
			Type: "Spa", Address: "123 Yonge St, Toronto, ON M5C 1W4", Latitude: 43.6532, Longitude: -79.3832,
			Services: []SampleService{{"Full Body Massage", 120}, {"Facial", 90}},
		},
		{
			Name: "Queen Street Salon", Owner: "David Chen", Email: "david@queensalon.com", Phone: "(416) 555-0202",
			Type: "Salon", Address: "456 Queen St W, Toronto, ON M5V 2A8", Latitude: 43.6487, Longitude: -79.3962,
			Services: []SampleService{{"Haircut", 60}, {"Coloring", 150}},
		},
		{
			Name: "Yorkville Beauty", Owner: "Emma Wilson", Email: "emma@yorkvillebeauty.com", Phone: "(416) 555-0303",
			Type: "Makeup", Address: "789 Bloor St, Toronto, ON M4W 1A9", Latitude: 43.6708, Longitude: -79.3899,
			Services: []SampleService{{"Bridal Makeup", 200}, {"Lash Extensions", 85}},
		},
		{
			Name: "Capital Skin Clinic", Owner: "Dr. Robert Brown", Email: "robert@capitalskin.com",
			Phone: "(613) 555-0707", Type: "Skin Care", Address: "50 Rideau St, Ottawa, ON K1N 9J7",
			Latitude: 45.4215, Longitude: -75.6972,
			Services: []SampleService{{"Dermatology Consult", 150}, {"Laser Treatment", 200}},
		},
		{
			Name: "ByWard Nails", Owner: "Sophie Martin", Email: "sophie@bywardnails.com", Phone: "(613) 555-0808",
			Type: "Nails", Address: "100 ByWard Market, Ottawa, ON K1N 7A1", Latitude: 45.4267, Longitude: -75.6927,
			Services: []SampleService{{"Gel Manicure", 55}, {"Pedicure", 65}},
		},
		{
			Name: "Pacific Wellness", Owner: "Emily Wong", Email: "emily@pacificwellness.com", Phone: "(604) 555-0303",
			Type: "Spa", Address: "789 Granville St, Vancouver, BC V6Z 1K9", Latitude: 49.2827, Longitude: -123.1207,
			Services: []SampleService{{"Hot Stone Massage", 140}, {"Aromatherapy", 95}},
		},
		{
			Name: "Gastown Barbers", Owner: "Mike Smith", Email: "mike@gastownbarbers.com", Phone: "(604) 555-0404",
			Type: "Salon", Address: "321 Water St, Vancouver, BC V6B 1B8", Latitude: 49.2849, Longitude: -123.1116,
			Services: []SampleService{{"Men's Cut", 40}, {"Beard Trim", 25}},
		},
		{
			Name: "Beauté Montréal", Owner: "Isabelle Tremblay", Email: "isabelle@beaute.com", Phone: "(514) 555-0505",
			Type: "Makeup", Address: "100 Rue Sainte-Catherine O, Montréal, QC H2X 3V4",
			Latitude: 45.5017, Longitude: -73.5673,
			Services: []SampleService{{"Bridal Makeup", 180}, {"Evening Look", 95}},
		},
		{
			Name: "Stampede Nails", Owner: "Jessica Lee", Email: "jessica@stampedenails.com", Phone: "(403) 555-0606",
			Type: "Nails", Address: "200 8 Ave SW, Calgary, AB T2P 1B5", Latitude: 51.0447, Longitude: -114.0719,
			Services: []SampleService{{"Gel Nails", 65}, {"Pedicure", 55}},
		},
		{
			Name: "Halifax Harbour Spa", Owner: "Jennifer MacLeod", Email: "jennifer@halifaxspa.com",
			Phone: "(902) 555-1111", Type: "Spa", Address: "1869 Upper Water St, Halifax, NS B3J 1S9",
			Latitude: 44.6488, Longitude: -63.5752,
			Services: []SampleService{{"Seaweed Wrap", 110}, {"Massage", 100}},
		},
	}
}
