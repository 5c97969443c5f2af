//go:build wasip1

// Command engine is the crypto engine compiled as an extism guest. Every
// engine function is exported under its wire name; input is the JSON args
// array of the request and output its JSON result.
package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/extism/go-pdk"

	"github.com/sonr-io/keybridge/crypto/argon2"
	"github.com/sonr-io/keybridge/engine"
	"github.com/sonr-io/keybridge/engine/native"
	"github.com/sonr-io/keybridge/rpc"
)

const (
	KeyEngineVersion = "engine_version"
	KeyScheme        = "key_scheme"
	KeyKDFProfile    = "kdf_profile"
)

var eng *native.Engine

func main() {}

// initializeEngine builds the engine from manifest config on first use
func initializeEngine() error {
	if eng != nil {
		return nil
	}

	opts := []native.Option{}
	if v, ok := pdk.GetConfig(KeyScheme); ok {
		scheme, err := native.ParseScheme(v)
		if err != nil {
			return err
		}
		opts = append(opts, native.WithScheme(scheme))
	}
	if v, ok := pdk.GetConfig(KeyKDFProfile); ok && v == "light" {
		opts = append(opts, native.WithKDFConfig(argon2.LightConfig()))
	}

	e, err := native.New(opts...)
	if err != nil {
		return err
	}
	eng = e

	version, _ := pdk.GetConfig(KeyEngineVersion)
	pdk.Log(pdk.LogInfo, fmt.Sprintf("engine %s ready (scheme %s)", version, e.Scheme()))
	return nil
}

func dispatch(fn string) int32 {
	if err := initializeEngine(); err != nil {
		pdk.SetError(fmt.Errorf("failed to initialize engine: %w", err))
		return 1
	}

	var args []json.RawMessage
	if err := pdk.InputJSON(&args); err != nil {
		pdk.SetError(fmt.Errorf("failed to parse request: %w", err))
		return 1
	}

	req, err := engine.Decode(rpc.Request{Fn: fn, Args: args})
	if err != nil {
		pdk.SetError(err)
		return 1
	}
	result, err := engine.Apply(context.Background(), eng, req)
	if err != nil {
		pdk.SetError(err)
		return 1
	}
	if err := pdk.OutputJSON(result); err != nil {
		pdk.SetError(fmt.Errorf("failed to encode result: %w", err))
		return 1
	}
	return 0
}

//go:wasmexport generateUsernameHash
func generateUsernameHash() int32 { return dispatch(engine.FnGenerateUsernameHash) }

//go:wasmexport generateUserSalt
func generateUserSalt() int32 { return dispatch(engine.FnGenerateUserSalt) }

//go:wasmexport generatePasswordSecretBoxKey
func generatePasswordSecretBoxKey() int32 { return dispatch(engine.FnGeneratePasswordSecretBoxKey) }

//go:wasmexport generatePasswordAuthKey
func generatePasswordAuthKey() int32 { return dispatch(engine.FnGeneratePasswordAuthKey) }

//go:wasmexport generateRecoveryCode
func generateRecoveryCode() int32 { return dispatch(engine.FnGenerateRecoveryCode) }

//go:wasmexport generateAsymmetricKeys
func generateAsymmetricKeys() int32 { return dispatch(engine.FnGenerateAsymmetricKeys) }

//go:wasmexport encryptPrivateKey
func encryptPrivateKey() int32 { return dispatch(engine.FnEncryptPrivateKey) }

//go:wasmexport decryptPrivateKey
func decryptPrivateKey() int32 { return dispatch(engine.FnDecryptPrivateKey) }

//go:wasmexport decryptPrivateKeyRecovery
func decryptPrivateKeyRecovery() int32 { return dispatch(engine.FnDecryptPrivateKeyRecovery) }

//go:wasmexport encryptWithPublicKeyPair
func encryptWithPublicKeyPair() int32 { return dispatch(engine.FnEncryptWithPublicKeyPair) }

//go:wasmexport decryptWithPrivateKeyPair
func decryptWithPrivateKeyPair() int32 { return dispatch(engine.FnDecryptWithPrivateKeyPair) }

//go:wasmexport passwordChange
func passwordChange() int32 { return dispatch(engine.FnPasswordChange) }
