package payment

// SplitPolicy divides an amount between the studio and the trainer.
// TrainerBasisPoints is out of 10000; zero keeps everything for the admin.
type SplitPolicy struct {
	TrainerBasisPoints int64
}

func (p SplitPolicy) Split(amount int64) (adminShare, trainerShare int64) {
	bps := p.TrainerBasisPoints
	if bps < 0 {
		bps = 0
	}
	if bps > 10000 {
		bps = 10000
	}
	trainerShare = amount * bps / 10000
	return amount - trainerShare, trainerShare
}
