package storage

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"filmvault/native/crowdfund"
	"filmvault/native/escrow"
	"filmvault/native/platform"
	"filmvault/native/rewards"
	"filmvault/native/verification"
)

// Key layout. Singletons use fixed keys; collections append a formatted id.
const (
	keyPlatformRegistry   = "platform/registry"
	keyPlatformAdmins     = "platform/admin/"
	keyPlatformAdminCount = "platform/admins/count"
	keyPlatformPaused     = "platform/paused"

	keyEscrowAccounts = "escrow/account/"
	keyEscrowTrusted  = "escrow/trusted"

	keyCampaigns     = "crowdfund/campaign/"
	keyContributions = "crowdfund/contribution/"

	keyRewardTokens   = "rewards/token/"
	keyRewardCounter  = "rewards/counter"

	keyChainHeight = "chain/height"

	keyVerificationRecords = "verification/record/"
	keyFeeMultiplier       = "verification/feeMultiplier"
	keyDistributable       = "verification/distributable"
	keyDistributions       = "verification/distribution/"
	keyDistributionCounter = "verification/distributions/count"
	keyTreasuries          = "verification/treasuries"
)

// Store is the typed state backend shared by every module engine. Records are
// encoded as JSON over a flat key-value Database.
type Store struct {
	db Database
}

// NewStore wraps the database in a typed store.
func NewStore(db Database) *Store {
	return &Store{db: db}
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) putJSON(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", key, err)
	}
	return s.db.Put([]byte(key), raw)
}

func (s *Store) getJSON(key string, out any) (bool, error) {
	raw, err := s.db.Get([]byte(key))
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("storage: decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) getUint(key string) (uint64, error) {
	var v uint64
	if _, err := s.getJSON(key, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func (s *Store) getBigInt(key string) (*big.Int, error) {
	var v string
	ok, err := s.getJSON(key, &v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	amount, valid := new(big.Int).SetString(v, 10)
	if !valid {
		return nil, fmt.Errorf("storage: corrupt amount at %s", key)
	}
	return amount, nil
}

func (s *Store) putBigInt(key string, v *big.Int) error {
	if v == nil {
		v = big.NewInt(0)
	}
	return s.putJSON(key, v.String())
}

func addrKey(prefix string, addr [20]byte) string {
	return prefix + hex.EncodeToString(addr[:])
}

func idKey(prefix string, id uint64) string {
	return fmt.Sprintf("%s%020d", prefix, id)
}

// --- platform state ---

// PlatformRegistryGet returns the stored registry, or nil when the platform
// has never been initialized.
func (s *Store) PlatformRegistryGet() (*platform.Registry, error) {
	var reg platform.Registry
	ok, err := s.getJSON(keyPlatformRegistry, &reg)
	if err != nil || !ok {
		return nil, err
	}
	return &reg, nil
}

// PlatformRegistryPut persists the registry singleton.
func (s *Store) PlatformRegistryPut(reg *platform.Registry) error {
	if reg == nil {
		return fmt.Errorf("storage: nil registry")
	}
	return s.putJSON(keyPlatformRegistry, reg)
}

// PlatformAdminGet reports whether the principal holds the admin flag.
func (s *Store) PlatformAdminGet(addr [20]byte) (bool, error) {
	return s.db.Has([]byte(addrKey(keyPlatformAdmins, addr)))
}

// PlatformAdminSet flips the principal's admin flag, maintaining the count.
func (s *Store) PlatformAdminSet(addr [20]byte, grant bool) error {
	key := addrKey(keyPlatformAdmins, addr)
	held, err := s.db.Has([]byte(key))
	if err != nil {
		return err
	}
	if grant == held {
		return nil
	}
	count, err := s.getUint(keyPlatformAdminCount)
	if err != nil {
		return err
	}
	if grant {
		if err := s.db.Put([]byte(key), []byte{1}); err != nil {
			return err
		}
		count++
	} else {
		if err := s.db.Delete([]byte(key)); err != nil {
			return err
		}
		if count > 0 {
			count--
		}
	}
	return s.putJSON(keyPlatformAdminCount, count)
}

// PlatformAdminCount returns the number of principals holding the admin flag.
func (s *Store) PlatformAdminCount() (uint64, error) {
	return s.getUint(keyPlatformAdminCount)
}

// PlatformPausedGet returns the global pause flag.
func (s *Store) PlatformPausedGet() (bool, error) {
	var paused bool
	if _, err := s.getJSON(keyPlatformPaused, &paused); err != nil {
		return false, err
	}
	return paused, nil
}

// PlatformPausedPut persists the global pause flag.
func (s *Store) PlatformPausedPut(paused bool) error {
	return s.putJSON(keyPlatformPaused, paused)
}

// SeedGenesisAdmins grants the admin flag to the configured genesis principals
// before the node starts. Existing grants are left untouched.
func (s *Store) SeedGenesisAdmins(addrs [][20]byte) error {
	for _, addr := range addrs {
		if err := s.PlatformAdminSet(addr, true); err != nil {
			return err
		}
	}
	return nil
}

// ChainHeightGet returns the last persisted block height.
func (s *Store) ChainHeightGet() (uint64, error) {
	return s.getUint(keyChainHeight)
}

// ChainHeightPut persists the current block height.
func (s *Store) ChainHeightPut(height uint64) error {
	return s.putJSON(keyChainHeight, height)
}

// --- escrow state ---

// EscrowAccountGet returns the campaign custody account.
func (s *Store) EscrowAccountGet(campaignID uint64) (*escrow.Account, bool, error) {
	var account escrow.Account
	ok, err := s.getJSON(idKey(keyEscrowAccounts, campaignID), &account)
	if err != nil || !ok {
		return nil, false, err
	}
	return &account, true, nil
}

// EscrowAccountPut persists the campaign custody account after sanitizing it.
func (s *Store) EscrowAccountPut(account *escrow.Account) error {
	sanitized, err := escrow.SanitizeAccount(account)
	if err != nil {
		return err
	}
	return s.putJSON(idKey(keyEscrowAccounts, sanitized.CampaignID), sanitized)
}

// EscrowTrustedGet returns the trusted caller set, or nil before Initialize.
func (s *Store) EscrowTrustedGet() (*escrow.Trusted, error) {
	var trusted escrow.Trusted
	ok, err := s.getJSON(keyEscrowTrusted, &trusted)
	if err != nil || !ok {
		return nil, err
	}
	return &trusted, nil
}

// EscrowTrustedPut persists the trusted caller set.
func (s *Store) EscrowTrustedPut(trusted *escrow.Trusted) error {
	if trusted == nil {
		return fmt.Errorf("storage: nil trusted set")
	}
	return s.putJSON(keyEscrowTrusted, trusted)
}

// --- crowdfund state ---

// CampaignGet returns the stored campaign.
func (s *Store) CampaignGet(id uint64) (*crowdfund.Campaign, bool, error) {
	var campaign crowdfund.Campaign
	ok, err := s.getJSON(idKey(keyCampaigns, id), &campaign)
	if err != nil || !ok {
		return nil, false, err
	}
	return &campaign, true, nil
}

// CampaignPut persists the campaign after sanitizing it.
func (s *Store) CampaignPut(campaign *crowdfund.Campaign) error {
	sanitized, err := crowdfund.SanitizeCampaign(campaign)
	if err != nil {
		return err
	}
	return s.putJSON(idKey(keyCampaigns, sanitized.ID), sanitized)
}

func contributionKey(campaignID uint64, contributor [20]byte) string {
	return fmt.Sprintf("%s%020d/%s", keyContributions, campaignID, hex.EncodeToString(contributor[:]))
}

// ContributionGet returns the cumulative contribution, zero when absent.
func (s *Store) ContributionGet(campaignID uint64, contributor [20]byte) (*big.Int, error) {
	return s.getBigInt(contributionKey(campaignID, contributor))
}

// ContributionPut persists the cumulative contribution total.
func (s *Store) ContributionPut(campaignID uint64, contributor [20]byte, total *big.Int) error {
	if total == nil || total.Sign() < 0 {
		return fmt.Errorf("storage: contribution total must be non-negative")
	}
	return s.putBigInt(contributionKey(campaignID, contributor), total)
}

// --- rewards state ---

// RewardTokenGet returns the stored token record.
func (s *Store) RewardTokenGet(id uint64) (*rewards.Token, bool, error) {
	var token rewards.Token
	ok, err := s.getJSON(idKey(keyRewardTokens, id), &token)
	if err != nil || !ok {
		return nil, false, err
	}
	return &token, true, nil
}

// RewardTokenPut persists the token record after sanitizing it.
func (s *Store) RewardTokenPut(token *rewards.Token) error {
	sanitized, err := rewards.SanitizeToken(token)
	if err != nil {
		return err
	}
	return s.putJSON(idKey(keyRewardTokens, sanitized.ID), sanitized)
}

// RewardCounterGet returns the sequential token id counter.
func (s *Store) RewardCounterGet() (uint64, error) {
	return s.getUint(keyRewardCounter)
}

// RewardCounterPut persists the sequential token id counter.
func (s *Store) RewardCounterPut(v uint64) error {
	return s.putJSON(keyRewardCounter, v)
}

// --- verification state ---

// VerificationRecordGet returns the filmmaker's verification record.
func (s *Store) VerificationRecordGet(filmmaker [20]byte) (*verification.Record, bool, error) {
	var record verification.Record
	ok, err := s.getJSON(addrKey(keyVerificationRecords, filmmaker), &record)
	if err != nil || !ok {
		return nil, false, err
	}
	return &record, true, nil
}

// VerificationRecordPut persists the filmmaker's verification record.
func (s *Store) VerificationRecordPut(record *verification.Record) error {
	if record == nil {
		return fmt.Errorf("storage: nil verification record")
	}
	return s.putJSON(addrKey(keyVerificationRecords, record.Filmmaker), record)
}

// FeeMultiplierGet returns the stored multiplier; zero means unset.
func (s *Store) FeeMultiplierGet() (uint64, error) {
	return s.getUint(keyFeeMultiplier)
}

// FeeMultiplierPut persists the fee multiplier.
func (s *Store) FeeMultiplierPut(v uint64) error {
	return s.putJSON(keyFeeMultiplier, v)
}

// DistributableBalanceGet returns the distributable fee balance.
func (s *Store) DistributableBalanceGet() (*big.Int, error) {
	return s.getBigInt(keyDistributable)
}

// DistributableBalancePut persists the distributable fee balance.
func (s *Store) DistributableBalancePut(v *big.Int) error {
	if v == nil || v.Sign() < 0 {
		return fmt.Errorf("storage: distributable balance must be non-negative")
	}
	return s.putBigInt(keyDistributable, v)
}

// DistributionGet returns the immutable record for one distribution period.
func (s *Store) DistributionGet(period uint64) (*verification.DistributionRecord, bool, error) {
	var record verification.DistributionRecord
	ok, err := s.getJSON(idKey(keyDistributions, period), &record)
	if err != nil || !ok {
		return nil, false, err
	}
	return &record, true, nil
}

// DistributionPut appends one distribution record. Records are never mutated
// after creation.
func (s *Store) DistributionPut(record *verification.DistributionRecord) error {
	if record == nil {
		return fmt.Errorf("storage: nil distribution record")
	}
	key := idKey(keyDistributions, record.Period)
	exists, err := s.db.Has([]byte(key))
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("storage: distribution period %d already recorded", record.Period)
	}
	return s.putJSON(key, record)
}

// DistributionCounterGet returns the monotonic period counter.
func (s *Store) DistributionCounterGet() (uint64, error) {
	return s.getUint(keyDistributionCounter)
}

// DistributionCounterPut persists the monotonic period counter.
func (s *Store) DistributionCounterPut(v uint64) error {
	return s.putJSON(keyDistributionCounter, v)
}

// TreasuriesGet returns the treasury principals and accrued totals.
func (s *Store) TreasuriesGet() (*verification.Treasuries, error) {
	var treasuries verification.Treasuries
	ok, err := s.getJSON(keyTreasuries, &treasuries)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &treasuries, nil
}

// TreasuriesPut persists the treasury principals and accrued totals.
func (s *Store) TreasuriesPut(treasuries *verification.Treasuries) error {
	if treasuries == nil {
		return fmt.Errorf("storage: nil treasuries")
	}
	return s.putJSON(keyTreasuries, treasuries)
}
