package discount

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	valid := window("d1", 25)
	valid.Description = "winter sale"

	tests := []struct {
		name    string
		mutate  func(d *Discount)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Discount) {}},
		{name: "lower bound", mutate: func(d *Discount) { d.Percentage = 1 }},
		{name: "upper bound", mutate: func(d *Discount) { d.Percentage = 99 }},
		{name: "zero percent", mutate: func(d *Discount) { d.Percentage = 0 }, wantErr: true},
		{name: "hundred percent", mutate: func(d *Discount) { d.Percentage = 100 }, wantErr: true},
		{name: "inverted window", mutate: func(d *Discount) { d.StartDate = d.EndDate.Add(time.Second) }, wantErr: true},
		{name: "single instant window", mutate: func(d *Discount) { d.StartDate = d.EndDate }},
		{name: "already ended", mutate: func(d *Discount) {
			d.StartDate = jan1.AddDate(-1, 0, 0)
			d.EndDate = jan1.AddDate(-1, 1, 0)
		}},
		{name: "blank name", mutate: func(d *Discount) { d.Name = "  " }, wantErr: true},
		{name: "missing description", mutate: func(d *Discount) { d.Description = "" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			err := Validate(d)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidDiscount)
				return
			}
			require.NoError(t, err)
		})
	}
}
