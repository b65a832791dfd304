package solana

import (
	"bytes"
	"fmt"

	"github.com/mr-tron/base58"
)

// AccountMeta describes an account referenced by an instruction.
type AccountMeta struct {
	PubKey     string
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single program invocation within a transaction.
type Instruction struct {
	ProgramID string
	Accounts  []AccountMeta
	Data      []byte
}

// Transaction is a legacy-format transaction under construction. The
// message is compiled at build time; signatures are attached afterwards.
type Transaction struct {
	message    []byte
	signerKeys []string // base58, message order
	signatures map[string][]byte
}

// NewTransaction compiles instructions into a legacy transaction message.
// The fee payer occupies the first account slot and always signs.
func NewTransaction(feePayer, recentBlockhash string, instructions ...Instruction) (*Transaction, error) {
	if feePayer == "" {
		return nil, fmt.Errorf("fee payer is required")
	}
	if recentBlockhash == "" {
		return nil, fmt.Errorf("recent blockhash is required")
	}
	if len(instructions) == 0 {
		return nil, fmt.Errorf("transaction has no instructions")
	}

	accounts := collectAccounts(feePayer, instructions)

	index := make(map[string]int, len(accounts))
	for i, a := range accounts {
		index[a.PubKey] = i
	}

	var numRequiredSignatures, numReadonlySigned, numReadonlyUnsigned int
	for _, a := range accounts {
		if a.IsSigner {
			numRequiredSignatures++
			if !a.IsWritable {
				numReadonlySigned++
			}
		} else if !a.IsWritable {
			numReadonlyUnsigned++
		}
	}

	var msg bytes.Buffer
	msg.WriteByte(byte(numRequiredSignatures))
	msg.WriteByte(byte(numReadonlySigned))
	msg.WriteByte(byte(numReadonlyUnsigned))

	writeCompactU16(&msg, len(accounts))
	for _, a := range accounts {
		raw, err := decodeAddress(a.PubKey)
		if err != nil {
			return nil, err
		}
		msg.Write(raw)
	}

	hash, err := decodeAddress(recentBlockhash)
	if err != nil {
		return nil, fmt.Errorf("blockhash: %w", err)
	}
	msg.Write(hash)

	writeCompactU16(&msg, len(instructions))
	for _, ins := range instructions {
		msg.WriteByte(byte(index[ins.ProgramID]))
		writeCompactU16(&msg, len(ins.Accounts))
		for _, a := range ins.Accounts {
			msg.WriteByte(byte(index[a.PubKey]))
		}
		writeCompactU16(&msg, len(ins.Data))
		msg.Write(ins.Data)
	}

	tx := &Transaction{
		message:    msg.Bytes(),
		signatures: make(map[string][]byte),
	}
	for _, a := range accounts {
		if a.IsSigner {
			tx.signerKeys = append(tx.signerKeys, a.PubKey)
		}
	}

	return tx, nil
}

// collectAccounts merges instruction account metas into message order:
// fee payer, then writable signers, readonly signers, writable non-signers,
// readonly non-signers. Program IDs enter as readonly non-signers.
func collectAccounts(feePayer string, instructions []Instruction) []AccountMeta {
	merged := map[string]*AccountMeta{
		feePayer: {PubKey: feePayer, IsSigner: true, IsWritable: true},
	}
	order := []string{feePayer}

	upsert := func(m AccountMeta) {
		existing, ok := merged[m.PubKey]
		if !ok {
			copied := m
			merged[m.PubKey] = &copied
			order = append(order, m.PubKey)
			return
		}
		existing.IsSigner = existing.IsSigner || m.IsSigner
		existing.IsWritable = existing.IsWritable || m.IsWritable
	}

	for _, ins := range instructions {
		for _, a := range ins.Accounts {
			upsert(a)
		}
		upsert(AccountMeta{PubKey: ins.ProgramID})
	}

	rank := func(a *AccountMeta) int {
		switch {
		case a.PubKey == feePayer:
			return 0
		case a.IsSigner && a.IsWritable:
			return 1
		case a.IsSigner:
			return 2
		case a.IsWritable:
			return 3
		default:
			return 4
		}
	}

	// Stable bucket sort preserves first-reference order within each class.
	accounts := make([]AccountMeta, 0, len(order))
	for class := 0; class <= 4; class++ {
		for _, key := range order {
			if a := merged[key]; rank(a) == class {
				accounts = append(accounts, *a)
			}
		}
	}

	return accounts
}

// Message returns the compiled message bytes that signers sign over.
func (t *Transaction) Message() []byte {
	return t.message
}

// SignerKeys returns the base58 addresses required to sign, message order.
func (t *Transaction) SignerKeys() []string {
	return t.signerKeys
}

// Sign attaches signatures from the given keypairs.
func (t *Transaction) Sign(keypairs ...*Keypair) error {
	for _, kp := range keypairs {
		pub := kp.PublicKey()
		if !t.requiresSigner(pub) {
			return fmt.Errorf("unexpected signer %s", pub)
		}
		t.signatures[pub] = kp.Sign(t.message)
	}
	return nil
}

func (t *Transaction) requiresSigner(pubkey string) bool {
	for _, k := range t.signerKeys {
		if k == pubkey {
			return true
		}
	}
	return false
}

// Serialize produces the wire form of the transaction. All required
// signatures must be present.
func (t *Transaction) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	writeCompactU16(&buf, len(t.signerKeys))
	for _, key := range t.signerKeys {
		sig, ok := t.signatures[key]
		if !ok {
			return nil, fmt.Errorf("missing signature for %s", key)
		}
		buf.Write(sig)
	}
	buf.Write(t.message)
	return buf.Bytes(), nil
}

// decodeAddress decodes a base58 address and validates its length.
func decodeAddress(address string) ([]byte, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("decode address %s: %w", address, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("address %s is %d bytes, want 32", address, len(raw))
	}
	return raw, nil
}

// writeCompactU16 writes a length in the compact-u16 encoding used by the
// transaction wire format.
func writeCompactU16(buf *bytes.Buffer, n int) {
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n == 0 {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}
